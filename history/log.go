////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package history persists the messages of one chat target as an append-only
// log and replays it at startup.
//
// The file holds one JSON object per line, in insertion order:
//
//	{"t":1650000000000,"s":"alice@example.org","b":"hi","r":false}
//
// t is the Unix millisecond timestamp, s the sender, b the body and r the
// read flag at the time the record was written. The file is never rewritten.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/message"
	"gitlab.com/elixxir/deskchat/metrics"
)

var (
	// ErrPersistence is returned once a write to the log has failed. The log
	// stays failed for the rest of the session.
	ErrPersistence = errors.New("history log write failed")

	// ErrMalformedRecord marks a line that could not be decoded. Replay skips
	// such lines.
	ErrMalformedRecord = errors.New("malformed history record")

	// ErrClosed is returned when appending to a closed log.
	ErrClosed = errors.New("history log is closed")
)

const (
	fileExtension = ".log"
	dirPerm       = 0700
	filePerm      = 0600
)

// Path returns the log path for the given user and target.
func Path(baseDir, user, kind, targetID string) string {
	return filepath.Join(baseDir, url.PathEscape(user),
		kind+"_"+url.PathEscape(targetID)+fileExtension)
}

// Log is the append-only history of one (user, target) pair. One writer handle
// is held for the lifetime of the log and opened on the first append.
type Log struct {
	path string

	file   *os.File
	w      *bufio.Writer
	failed error
	closed bool

	mux sync.Mutex
}

// Open returns the log at path. The file is not created until the first
// append; a missing file replays as empty history.
func Open(path string) *Log {
	return &Log{path: path}
}

// Path returns the file path of the log.
func (l *Log) Path() string {
	return l.path
}

// Append writes one record and flushes it to disk before returning. After the
// first failure every call returns an error wrapping ErrPersistence without
// touching the file, so a later success can never follow a lost record.
func (l *Log) Append(m message.Message) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.failed != nil {
		return l.failed
	}

	line, err := json.Marshal(&m)
	if err != nil {
		return l.fail(err, "encode")
	}
	line = append(line, '\n')

	if l.file == nil {
		if err = os.MkdirAll(filepath.Dir(l.path), dirPerm); err != nil {
			return l.fail(err, "create directory")
		}
		l.file, err = os.OpenFile(l.path,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
		if err != nil {
			l.file = nil
			return l.fail(err, "open")
		}
		l.w = bufio.NewWriter(l.file)
		if err = l.terminateTail(); err != nil {
			return l.fail(err, "repair tail")
		}
	}

	if _, err = l.w.Write(line); err != nil {
		return l.fail(err, "write")
	}
	if err = l.w.Flush(); err != nil {
		return l.fail(err, "flush")
	}
	if err = l.file.Sync(); err != nil {
		return l.fail(err, "sync")
	}

	return nil
}

// terminateTail queues a newline when the existing file ends in a torn record
// so the next record starts on its own line. Must be called under the lock.
func (l *Log) terminateTail() error {
	info, err := l.file.Stat()
	if err != nil || info.Size() == 0 {
		return err
	}

	f, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer f.Close()

	last := make([]byte, 1)
	if _, err = f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] != '\n' {
		jww.WARN.Printf("[History] %s ends in a partial record", l.path)
		return l.w.WriteByte('\n')
	}
	return nil
}

// fail latches the log into the failed state. Must be called under the lock.
func (l *Log) fail(err error, op string) error {
	l.failed = errors.Wrapf(ErrPersistence, "%s %s: %v", op, l.path, err)
	metrics.HistoryWriteErrors.Inc()
	jww.ERROR.Printf("[History] %+v", l.failed)
	return l.failed
}

// Failed returns the error that latched the log, or nil.
func (l *Log) Failed() error {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.failed
}

// Replay reads every record in file order. Malformed records are skipped and
// counted. Appends wait until the replay has finished.
func (l *Log) Replay() ([]message.Message, int, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	} else if err != nil {
		return nil, 0, errors.Wrapf(err, "open history %s", l.path)
	}
	defer f.Close()

	return decode(f, l.path)
}

func decode(r io.Reader, name string) ([]message.Message, int, error) {
	var list []message.Message
	skipped := 0
	reader := bufio.NewReader(r)

	for lineNum := 1; ; lineNum++ {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return list, skipped, errors.Wrapf(err, "read history %s", name)
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var m message.Message
			if jsonErr := json.Unmarshal(trimmed, &m); jsonErr != nil {
				skipped++
				metrics.HistoryRecordsSkipped.Inc()
				jww.WARN.Printf("[History] %+v", errors.Wrapf(
					ErrMalformedRecord, "%s line %d: %v", name, lineNum, jsonErr))
			} else {
				list = append(list, m)
			}
		}

		if err == io.EOF {
			return list, skipped, nil
		}
	}
}

// Close flushes and releases the writer handle.
func (l *Log) Close() error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.file == nil {
		return nil
	}

	var err error
	if l.failed == nil {
		err = l.w.Flush()
	}
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	return err
}
