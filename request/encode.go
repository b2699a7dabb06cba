// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const defaultContentType = "application/octet-stream"

// mergeQuery appends pairs to an existing raw query, separated by "&".
// The existing query is kept byte for byte.
func mergeQuery(rawQuery string, pairs []Pair) string {
	encoded := encodePairs(pairs)
	if rawQuery == "" {
		return encoded
	}
	if encoded == "" {
		return rawQuery
	}
	return rawQuery + "&" + encoded
}

func encodePairs(pairs []Pair) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

var newBoundary = func() string {
	return uuid.NewString()
}

// encodeMultipart writes the form fields followed by the files as a
// multipart/form-data body, and returns the body with its content
// type.
func encodeMultipart(fields []Pair, files []File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(newBoundary()); err != nil {
		return nil, "", err
	}

	for _, f := range fields {
		if err := w.WriteField(f.Key, f.Value); err != nil {
			return nil, "", err
		}
	}

	for i := range files {
		if err := writeFile(w, &files[i]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, f *File) error {
	name := fileName(f)
	h := make(textproto.MIMEHeader)
	disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(f.Field))
	if name != "" {
		disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(name))
	}
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Type", contentType(f.ContentType, name))

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err = io.Copy(part, f.Content); err != nil {
		return fmt.Errorf("file %q: %w", f.Field, err)
	}
	if c, ok := f.Content.(io.Closer); ok {
		if err = c.Close(); err != nil {
			return fmt.Errorf("file %q: %w", f.Field, err)
		}
	}
	return nil
}

func fileName(f *File) string {
	if f.Name != "" {
		return f.Name
	}
	if named, ok := f.Content.(interface{ Name() string }); ok {
		return filepath.Base(named.Name())
	}
	return ""
}

func contentType(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	if name != "" {
		if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
			return t
		}
	}
	return defaultContentType
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
