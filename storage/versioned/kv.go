////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package versioned wraps an ekv.KeyValue so that every value carries a
// version and write time, and so that callers can scope keys per user.
package versioned

import (
	"fmt"
	"net/url"

	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/ekv"
)

// PrefixSeparator joins nested prefixes.
const PrefixSeparator = "/"

// KV stores versioned objects under an optional prefix.
type KV struct {
	data   ekv.KeyValue
	prefix string
}

// NewKV wraps the given key-value backend.
func NewKV(data ekv.KeyValue) *KV {
	return &KV{data: data}
}

// Get loads the object stored at key for the given version.
func (v *KV) Get(key string, version uint64) (*Object, error) {
	fullKey := v.makeKey(key, version)
	jww.TRACE.Printf("[KV] get %s", fullKey)

	obj := &Object{}
	if err := v.data.Get(fullKey, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Set stores the object under key, using the object's version in the key.
func (v *KV) Set(key string, object *Object) error {
	fullKey := v.makeKey(key, object.Version)
	jww.TRACE.Printf("[KV] set %s", fullKey)
	return v.data.Set(fullKey, object)
}

// Delete removes the object stored at key for the given version.
func (v *KV) Delete(key string, version uint64) error {
	fullKey := v.makeKey(key, version)
	jww.TRACE.Printf("[KV] delete %s", fullKey)
	return v.data.Delete(fullKey)
}

// Prefix returns a KV sharing the same backend whose keys are nested under
// prefix. The prefix is path-escaped so user addresses can be used directly.
func (v *KV) Prefix(prefix string) *KV {
	return &KV{
		data:   v.data,
		prefix: v.prefix + url.PathEscape(prefix) + PrefixSeparator,
	}
}

// GetPrefix returns the full prefix of this KV.
func (v *KV) GetPrefix() string {
	return v.prefix
}

// Exists returns false if the error indicates the element does not exist.
func (v *KV) Exists(err error) bool {
	return ekv.Exists(err)
}

func (v *KV) makeKey(key string, version uint64) string {
	return fmt.Sprintf("%s%s_%d", v.prefix, key, version)
}
