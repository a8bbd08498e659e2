////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package versioned

import (
	"encoding/json"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

// Object is the envelope every value is stored in. The version lets a reader
// detect records written by an older layout.
type Object struct {
	Version   uint64
	Timestamp time.Time
	Data      []byte
}

// Unmarshal deserializes an Object from JSON. It satisfies ekv.Unmarshaler.
func (o *Object) Unmarshal(data []byte) error {
	return json.Unmarshal(data, o)
}

// Marshal serializes the Object to JSON. It satisfies ekv.Marshaler.
func (o *Object) Marshal() []byte {
	data, err := json.Marshal(o)
	if err != nil {
		// All fields are plain types; this cannot fail on a valid Object
		jww.FATAL.Panicf("Failed to marshal versioned object: %+v", err)
	}
	return data
}
