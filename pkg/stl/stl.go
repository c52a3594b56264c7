// Package stl reads and writes STL triangle meshes, both the binary and the
// ASCII variants. Decoded triangle soup is welded into an indexed mesh.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-restruct/restruct"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// ErrFormat is matched by every decoding error caused by malformed input.
var ErrFormat = errors.New("stl: malformed file")

const (
	headerSize = 84 // 80-byte comment + uint32 triangle count
	facetSize  = 50 // normal, three vertices, attribute count
)

type binaryHeader struct {
	Comment [80]byte
	Count   uint32
}

type binaryFacet struct {
	Normal   [3]float32
	Vertices [9]float32
	Attr     uint16
}

func formatError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// ReadFile decodes the STL file at path and names the mesh after it.
func ReadFile(path string) (*kernel.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stl: %w", err)
	}
	defer f.Close()

	m, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.PartName = filepath.Base(path)
	return m, nil
}

// Decode reads a binary or ASCII STL stream. A stream long enough for the
// facets its binary header announces is binary even when the header starts
// with "solid".
func Decode(r io.Reader) (*kernel.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("stl: read: %w", err)
	}
	var tris []kernel.Triangle
	switch {
	case isBinary(data):
		tris, err = decodeBinary(data)
	case bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")):
		tris, err = decodeASCII(data)
	case len(data) >= headerSize:
		count := binary.LittleEndian.Uint32(data[80:84])
		err = formatError("binary size %d does not match %d triangles", len(data), count)
	default:
		err = formatError("file too short (%d bytes)", len(data))
	}
	if err != nil {
		return nil, err
	}
	if len(tris) == 0 {
		return nil, formatError("no triangles")
	}
	return kernel.Weld(tris), nil
}

// isBinary reports whether data holds at least the facets its header
// announces. Some exporters pad the file, so trailing bytes are ignored.
func isBinary(data []byte) bool {
	if len(data) < headerSize {
		return false
	}
	count := uint64(binary.LittleEndian.Uint32(data[80:84]))
	return uint64(len(data)) >= headerSize+count*facetSize
}

func decodeBinary(data []byte) ([]kernel.Triangle, error) {
	var hdr binaryHeader
	if err := restruct.Unpack(data[:headerSize], binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("stl: header: %w", err)
	}
	tris := make([]kernel.Triangle, hdr.Count)
	for i := range tris {
		off := headerSize + i*facetSize
		var f binaryFacet
		if err := restruct.Unpack(data[off:off+facetSize], binary.LittleEndian, &f); err != nil {
			return nil, fmt.Errorf("stl: facet %d: %w", i, err)
		}
		for j := 0; j < 3; j++ {
			tris[i][j] = kernel.Vec3{
				X: float64(f.Vertices[3*j]),
				Y: float64(f.Vertices[3*j+1]),
				Z: float64(f.Vertices[3*j+2]),
			}
		}
	}
	return tris, nil
}

func decodeASCII(data []byte) ([]kernel.Triangle, error) {
	var (
		tris    []kernel.Triangle
		pending []kernel.Vec3
		inLoop  bool
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "outer":
			if inLoop {
				return nil, formatError("line %d: nested loop", line)
			}
			inLoop, pending = true, pending[:0]
		case "vertex":
			if !inLoop {
				return nil, formatError("line %d: vertex outside loop", line)
			}
			if len(fields) != 4 {
				return nil, formatError("line %d: vertex needs 3 coordinates", line)
			}
			var c [3]float64
			for i := range c {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, formatError("line %d: %v", line, err)
				}
				c[i] = v
			}
			pending = append(pending, kernel.Vec3{X: c[0], Y: c[1], Z: c[2]})
		case "endloop":
			if !inLoop || len(pending) != 3 {
				return nil, formatError("line %d: facet has %d vertices, want 3", line, len(pending))
			}
			tris = append(tris, kernel.Triangle{pending[0], pending[1], pending[2]})
			inLoop = false
		case "solid", "facet", "endfacet", "endsolid":
		default:
			return nil, formatError("line %d: unexpected %q", line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("stl: %w", err)
	}
	if inLoop {
		return nil, formatError("unterminated facet at end of file")
	}
	return tris, nil
}

// Encode writes m as binary STL. Facet normals are recomputed from the
// winding order.
func Encode(w io.Writer, m *kernel.Mesh) error {
	bw := bufio.NewWriter(w)
	hdr := binaryHeader{Count: uint32(len(m.Faces))}
	copy(hdr.Comment[:], "moldcheck "+m.PartName)
	buf, err := restruct.Pack(binary.LittleEndian, &hdr)
	if err != nil {
		return fmt.Errorf("stl: header: %w", err)
	}
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("stl: write: %w", err)
	}
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		f := binaryFacet{Normal: [3]float32{float32(n.X), float32(n.Y), float32(n.Z)}}
		for j, v := range [3]kernel.Vec3{a, b, c} {
			f.Vertices[3*j] = float32(v.X)
			f.Vertices[3*j+1] = float32(v.Y)
			f.Vertices[3*j+2] = float32(v.Z)
		}
		buf, err := restruct.Pack(binary.LittleEndian, &f)
		if err != nil {
			return fmt.Errorf("stl: facet %d: %w", i, err)
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("stl: write: %w", err)
		}
	}
	return bw.Flush()
}

// EncodeASCII writes m as ASCII STL.
func EncodeASCII(w io.Writer, m *kernel.Mesh) error {
	bw := bufio.NewWriter(w)
	name := strings.Join(strings.Fields(m.PartName), "_")
	fmt.Fprintf(bw, "solid %s\n", name)
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		fmt.Fprintf(bw, "  facet normal %s %s %s\n    outer loop\n", ftoa(n.X), ftoa(n.Y), ftoa(n.Z))
		for _, v := range [3]kernel.Vec3{a, b, c} {
			fmt.Fprintf(bw, "      vertex %s %s %s\n", ftoa(v.X), ftoa(v.Y), ftoa(v.Z))
		}
		fmt.Fprintf(bw, "    endloop\n  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

func ftoa(f float64) string {
	if f == 0 {
		f = math.Abs(f) // avoid "-0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
