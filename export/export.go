// Package export writes a snapshot of all stored entries to a compressed
// blob, and restores stores from such a blob.
//
// A blob is a gzip stream of a magic header followed by the protobuf wire
// encoding of
//
//	message Export { repeated Entry entries = 1; }
//	message Entry { bytes key = 1; bytes value = 2; }
//
// Fields are always written in this order and the reader requires it.
package export

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/CrowdStrike/csproto"
	"github.com/PowerDNS/simpleblob"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/cache"
	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/storage"
	"github.com/bathbot/entitycache/utils"
)

const (
	magic  = "ECX\x01"
	suffix = ".gz"
)

// Protobuf field numbers
const (
	fieldEntries = 1
	fieldKey     = 1
	fieldValue   = 2
)

var ErrNoExport = errors.New("no export found")

// Result describes an export or import run
type Result struct {
	Name    string
	Entries int
	Skipped int // entries that failed validation on import
	Size    int // compressed size
	Time    time.Duration
}

func (r Result) logFields() logrus.Fields {
	return logrus.Fields{
		"blob":       r.Name,
		"entries":    r.Entries,
		"skipped":    r.Skipped,
		"size":       r.Size,
		"time_taken": r.Time,
	}
}

// BlobName returns the name of an export created at t
func BlobName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%d%s", prefix, t.Unix(), suffix)
}

// parseBlobName returns the unix timestamp of an export blob name
func parseBlobName(prefix, name string) (int64, bool) {
	s, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, suffix)
	if !ok {
		return 0, false
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	return ts, err == nil
}

// Latest returns the name of the most recent export with the given prefix
func Latest(ctx context.Context, blobs simpleblob.Interface, prefix string) (string, error) {
	list, err := blobs.List(ctx, prefix+"-")
	if err != nil {
		return "", errors.Wrap(err, "list exports")
	}
	list = lo.Filter(list, func(b simpleblob.Blob, _ int) bool {
		_, ok := parseBlobName(prefix, b.Name)
		return ok
	})
	if len(list) == 0 {
		return "", ErrNoExport
	}
	latest := lo.MaxBy(list, func(a, b simpleblob.Blob) bool {
		ta, _ := parseBlobName(prefix, a.Name)
		tb, _ := parseBlobName(prefix, b.Name)
		return ta > tb
	})
	return latest.Name, nil
}

// Export writes all entries of all namespaces of st to a new blob.
func Export(ctx context.Context, st storage.Interface, blobs simpleblob.Interface, prefix string, l logrus.FieldLogger) (Result, error) {
	t0 := time.Now()
	res := Result{Name: BlobName(prefix, t0)}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	w := bufio.NewWriter(gw)
	if _, err := w.WriteString(magic); err != nil {
		return res, err
	}
	ew := newEntryWriter(w)

	namespaces, err := st.Namespaces(ctx)
	if err != nil {
		return res, errors.Wrap(err, "list namespaces")
	}
	for _, ns := range namespaces {
		err := st.Range(ctx, ns, "", func(key string, val []byte) error {
			res.Entries++
			return ew.write([]byte(key), val)
		})
		if err != nil {
			return res, errors.Wrapf(err, "export namespace %s", ns)
		}
	}
	if err := w.Flush(); err != nil {
		return res, err
	}
	if err := gw.Close(); err != nil {
		return res, errors.Wrap(err, "gzip")
	}

	res.Size = buf.Len()
	if err := blobs.Store(ctx, res.Name, buf.Bytes()); err != nil {
		return res, errors.Wrap(err, "store export")
	}
	res.Time = utils.TimeDiff(time.Now(), t0)
	l.WithFields(res.logFields()).Info("Exported cache")
	return res, nil
}

// Import loads the named blob into st. Entries that do not validate as an
// archive of the kind of their namespace are skipped and counted.
func Import(ctx context.Context, st storage.Interface, blobs simpleblob.Interface, name string, l logrus.FieldLogger) (Result, error) {
	t0 := time.Now()
	res := Result{Name: name}

	data, err := blobs.Load(ctx, name)
	if err != nil {
		return res, errors.Wrap(err, "load export")
	}
	res.Size = len(data)

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return res, errors.Wrap(err, "gzip")
	}
	defer gr.Close()
	body, err := io.ReadAll(gr)
	if err != nil {
		return res, errors.Wrap(err, "gzip")
	}
	if !bytes.HasPrefix(body, []byte(magic)) {
		return res, errors.New("not an entitycache export")
	}
	body = body[len(magic):]

	for len(body) > 0 {
		var key, val []byte
		key, val, body, err = nextEntry(body)
		if err != nil {
			return res, errors.Wrapf(err, "read entry %d", res.Entries+res.Skipped)
		}
		ttl, err := validate(string(key), val)
		if err != nil {
			res.Skipped++
			l.WithError(err).WithField("key", utils.DisplayASCII(key)).Warn("Skipping invalid entry")
			continue
		}
		if err := st.Set(ctx, string(key), val, ttl); err != nil {
			return res, errors.Wrapf(err, "set %s", key)
		}
		res.Entries++
	}
	res.Time = utils.TimeDiff(time.Now(), t0)
	l.WithFields(res.logFields()).Info("Imported cache")
	return res, nil
}

// validate checks an entry and returns the ttl to store it with
func validate(key string, val []byte) (time.Duration, error) {
	ns := storage.Namespace(key)
	if ns == cache.UnavailableGuildNamespace {
		if len(val) > 0 {
			return 0, errors.New("unavailable guild marker with a value")
		}
		return 0, nil
	}
	kind, err := entity.ParseKind(ns)
	if err != nil {
		return 0, err
	}
	if err := kind.Validate(val); err != nil {
		return 0, err
	}
	return kind.Cacheable().Expire, nil
}

// tagSize is the encoded size of the tag of a field numbered 1 to 15
const tagSize = 1

// bytesFieldSize returns the encoded size of a length-delimited field
// holding n bytes.
func bytesFieldSize(n int) int {
	return tagSize + csproto.SizeOfVarint(uint64(n)) + n
}

// putBytesField writes a length-delimited field to b, which must be large
// enough, and returns the number of bytes written.
func putBytesField(b []byte, field int, v []byte) int {
	offset := csproto.EncodeTag(b, field, csproto.WireTypeLengthDelimited)
	offset += csproto.EncodeVarint(b[offset:], uint64(len(v)))
	offset += copy(b[offset:], v)
	return offset
}

// entryWriter writes Export.entries one by one
type entryWriter struct {
	w   io.Writer
	buf []byte
}

func newEntryWriter(w io.Writer) *entryWriter {
	return &entryWriter{w: w}
}

func (ew *entryWriter) write(key, val []byte) error {
	msgSize := bytesFieldSize(len(key)) + bytesFieldSize(len(val))
	outerSize := tagSize + csproto.SizeOfVarint(uint64(msgSize)) + msgSize
	if cap(ew.buf) < outerSize {
		ew.buf = make([]byte, outerSize)
	}
	b := ew.buf[:outerSize]

	offset := csproto.EncodeTag(b, fieldEntries, csproto.WireTypeLengthDelimited)
	offset += csproto.EncodeVarint(b[offset:], uint64(msgSize))
	offset += putBytesField(b[offset:], fieldKey, key)
	offset += putBytesField(b[offset:], fieldValue, val)
	_, err := ew.w.Write(b[:offset])
	return err
}

// nextEntry decodes the entry at the start of b. The returned slices point
// into b.
func nextEntry(b []byte) (key, val, rest []byte, err error) {
	entry, rest, err := bytesField(b, fieldEntries)
	if err != nil {
		return nil, nil, nil, err
	}
	key, entry, err = bytesField(entry, fieldKey)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "key")
	}
	val, entry, err = bytesField(entry, fieldValue)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "value")
	}
	if len(entry) > 0 {
		return nil, nil, nil, errors.Errorf("%d trailing bytes in entry", len(entry))
	}
	return key, val, rest, nil
}

// bytesField decodes a length-delimited field with the given number
func bytesField(b []byte, field int) (val, rest []byte, err error) {
	if len(b) == 0 {
		return nil, nil, io.ErrUnexpectedEOF
	}
	v, n, err := csproto.DecodeVarint(b)
	if err != nil {
		return nil, nil, err
	}
	tag, wireType := int(v>>3), csproto.WireType(v&0x7)
	if tag != field || wireType != csproto.WireTypeLengthDelimited {
		return nil, nil, errors.Errorf("unexpected tag %d with wire type %v, want field %d", tag, wireType, field)
	}
	b = b[n:]
	size, n, err := csproto.DecodeVarint(b)
	if err != nil {
		return nil, nil, err
	}
	b = b[n:]
	if size > uint64(len(b)) {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return b[:size], b[size:], nil
}
