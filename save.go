package nif

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/nif/stream"
)

// savedFileMode is set on the temp file before the rename. os.CreateTemp
// creates files as 0600.
const savedFileMode = 0o644

// Trailer values written after the last block: one root, at block 0.
const (
	trailerRoots uint32 = 1
	trailerRoot  uint32 = 0
)

// WriteTo encodes the container to w: header, every block in index order,
// then the trailer. The header descriptor list is rebuilt from the blocks
// first. Tombstones are written from their raw bytes.
//
// A container in StateFailed cannot be written. On error, w may hold partial
// output.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	if c.state == StateFailed {
		return 0, &Error{Kind: KindWrite, Block: -1, Err: errFailedLoad}
	}
	if err := c.header.update(c.blocks); err != nil {
		return 0, err
	}

	sw := stream.NewWriter(w)
	if err := c.header.Write(sw); err != nil {
		return sw.Len(), &Error{Kind: KindWrite, Block: -1, Err: fmt.Errorf("header: %w", err)}
	}
	for i, b := range c.blocks {
		start := sw.Len()
		if b.Object != nil {
			b.Object.Encode(c.header, sw)
		} else {
			sw.Bytes(b.Raw)
		}
		if err := sw.Err(); err != nil {
			return sw.Len(), &Error{Kind: KindWrite, Block: i, Type: b.Type, Err: err}
		}
		if written := sw.Len() - start; written != int64(c.header.BlockSize(i)) {
			return sw.Len(), &Error{
				Kind:  KindWrite,
				Block: i,
				Type:  b.Type,
				Err:   fmt.Errorf("encoder wrote %d bytes, measured %d", written, c.header.BlockSize(i)),
			}
		}
	}
	sw.U32(trailerRoots)
	sw.U32(trailerRoot)
	if err := sw.Err(); err != nil {
		return sw.Len(), &Error{Kind: KindWrite, Block: -1, Err: fmt.Errorf("trailer: %w", err)}
	}
	return sw.Len(), nil
}

// Save writes the container to path.
//
// The file is written to a temporary file in the same directory and renamed
// into place, so a failed save leaves any existing file untouched. Parent
// directories are created as needed.
func (c *Container) Save(path string) error {
	if err := c.save(path); err != nil {
		return c.failWrite(path, err)
	}
	c.log().Debug("container saved", "path", path, "blocks", len(c.blocks))
	return nil
}

func (c *Container) save(path string) error {
	if c.state == StateFailed {
		return &Error{Kind: KindWrite, Block: -1, Err: errFailedLoad}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".nif-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(savedFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriter(tmp)
	if _, err := c.WriteTo(bw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// failWrite logs a save failure once and returns it as a KindWrite *Error.
// Unlike load failures, the in-memory graph stays usable.
func (c *Container) failWrite(path string, err error) error {
	e, ok := err.(*Error) //nolint:errorlint // WriteTo returns *Error unwrapped
	if !ok {
		e = newError(KindWrite, path, err)
	}
	e.Name = path
	c.log().Error(e.Error(), "kind", e.Kind.String(), "name", e.Name, "block", e.Block)
	return e
}
