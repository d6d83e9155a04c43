package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format versions. FormatPlain is a bare JSON document; FormatCompressed is a
// JSON header line followed by a gzip payload.
const (
	FormatPlain      = 1
	FormatCompressed = 2
)

// MaxDecompressedSize is the maximum allowed size of a decompressed payload (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// Write encodes a as a compressed archive: header line, newline, gzip payload.
// The header checksum covers the compressed bytes.
func Write(w io.Writer, a *Archive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:     FormatCompressed,
		CreatedAt:   a.CreatedAt,
		Checksum:    checksum(compressed.Bytes()),
		ResultCount: len(a.Results),
		Compressed:  true,
		Metadata:    a.Metadata,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	headerBytes = append(headerBytes, '\n')
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("writing compressed payload: %w", err)
	}
	return nil
}

// WriteFile writes a compressed archive to path, creating parent directories.
func WriteFile(path string, a *Archive) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := Write(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePlainFile writes a as indented JSON.
func WritePlainFile(path string, a *Archive) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling archive: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// Read decodes either format from r, verifying the checksum of compressed
// archives.
func Read(r io.Reader) (*Archive, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading header line: %w", err)
	}

	header, isHeader := parseHeader(first)
	if !isHeader {
		// Plain JSON: the first line is part of the document.
		rest, err := io.ReadAll(io.LimitReader(br, MaxDecompressedSize))
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		var a Archive
		if err := json.Unmarshal(append(first, rest...), &a); err != nil {
			return nil, fmt.Errorf("parsing archive: %w", err)
		}
		return &a, nil
	}

	compressed, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(compressed); actual != header.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var a Archive
	if err := json.Unmarshal(decompressed, &a); err != nil {
		return nil, fmt.Errorf("parsing archive data: %w", err)
	}
	if len(a.Results) != header.ResultCount {
		return nil, fmt.Errorf("header lists %d results, payload has %d", header.ResultCount, len(a.Results))
	}
	return &a, nil
}

// ReadFile reads an archive of either format from path.
func ReadFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// DetectFormat reports whether path is a plain or compressed archive.
func DetectFormat(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	first, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading first line: %w", err)
	}
	line := strings.TrimSpace(string(first))
	if line == "" {
		return 0, fmt.Errorf("file is empty")
	}
	if _, ok := parseHeader(first); ok {
		return FormatCompressed, nil
	}
	if line[0] == '{' {
		return FormatPlain, nil
	}
	return 0, fmt.Errorf("unrecognized archive format")
}

// ReadHeader reads only the header of a compressed archive.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	first, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	header, ok := parseHeader(first)
	if !ok {
		return nil, fmt.Errorf("not a compressed archive")
	}
	return &header, nil
}

// Verify checks a compressed archive's checksum without decompressing it.
func Verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	first, err := br.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("reading header line: %w", err)
	}
	header, ok := parseHeader(first)
	if !ok {
		return fmt.Errorf("checksum verification only supported for compressed archives")
	}

	h := sha256.New()
	if _, err := io.Copy(h, br); err != nil {
		return fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := "sha256:" + hex.EncodeToString(h.Sum(nil)); actual != header.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return nil
}

func parseHeader(line []byte) (Header, bool) {
	var h Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return Header{}, false
	}
	return h, h.Version == FormatCompressed && h.Compressed
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
