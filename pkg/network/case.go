package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// MarshalCase converts a network case to JSON bytes.
// Output is indented and field order is fixed by the struct definitions, so
// the same case always serializes identically.
func MarshalCase(n *Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCaseTo(n, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalCase deserializes JSON bytes to a network case.
func UnmarshalCase(data []byte) (*Network, error) {
	return readCaseFrom(bytes.NewReader(data))
}

// WriteCaseFile writes a network case to a JSON file.
// The file is created with 0644 permissions.
func WriteCaseFile(n *Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeCaseTo(n, f)
}

// WriteCase writes a network case as JSON to an io.Writer.
func WriteCase(n *Network, w io.Writer) error {
	return writeCaseTo(n, w)
}

// ReadCaseFile reads a JSON case file and returns the decoded network.
func ReadCaseFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readCaseFrom(f)
}

// ReadCase decodes a JSON case from an io.Reader.
func ReadCase(r io.Reader) (*Network, error) {
	return readCaseFrom(r)
}

func writeCaseTo(n *Network, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readCaseFrom(r io.Reader) (*Network, error) {
	var n Network
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &n, nil
}
