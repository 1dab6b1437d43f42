package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"

	"github.com/meigma/nif"
	"github.com/meigma/nif/archive"
	"github.com/meigma/nif/archive/httpsource"
	"github.com/meigma/nif/node"
)

// openArchive opens a local archive file, or a remote one when path is an
// http or https URL.
func (a *app) openArchive(ctx context.Context, path string) (*archive.Archive, error) {
	opts := []archive.Option{
		archive.WithMaxFileSize(uint64(a.cfg.MaxFileSize)),
		archive.WithLogger(a.logger),
	}
	if !isURL(path) {
		return archive.Open(path, opts...)
	}
	src, err := httpsource.New(ctx, path, httpsource.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	return archive.New(src, opts...)
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// resolver opens the configured archives and returns a resolver over them.
// The returned function closes the archives.
func (a *app) resolver(ctx context.Context) (*nif.Resolver, func(), error) {
	var opened []*archive.Archive
	closeAll := func() {
		for _, ar := range opened {
			_ = ar.Close() //nolint:errcheck // read-only files
		}
	}

	sources := make([]nif.Archive, 0, len(a.cfg.Archives))
	for _, path := range a.cfg.ArchivePaths() {
		ar, err := a.openArchive(ctx, path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, ar)
		sources = append(sources, ar)
	}

	res := nif.NewResolver(a.cfg.GameDir,
		nif.WithArchives(sources...),
		nif.WithMaxFileSize(uint64(a.cfg.MaxFileSize)),
		nif.WithLockBackOff(a.cfg.Retry.NewBackOff()),
		nif.WithResolverLogger(a.logger),
	)
	return res, closeAll, nil
}

func (a *app) inspect(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: inspect <name>...", errUsage)
	}
	res, closeAll, err := a.resolver(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	containers, err := nif.LoadAll(ctx, node.Registry(), res, args,
		nif.WithContainerOptions(nif.WithLogger(a.logger)),
	)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for i, c := range containers {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		h := c.Header()
		fmt.Fprintf(tw, "file:\t%s\n", args[i])
		fmt.Fprintf(tw, "version:\t%s (user %d, bs %d)\n", nif.VersionString(h.Version), h.UserVersion, h.BSVersion)
		if h.Creator != "" {
			fmt.Fprintf(tw, "creator:\t%s\n", h.Creator)
		}
		// The fingerprint covers the canonical re-encoding, which matches
		// the source bytes whenever the round trip is lossless.
		hasher := blake3.New()
		size, err := c.WriteTo(hasher)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "size:\t%s\n", humanize.IBytes(uint64(size))) //nolint:gosec // size is non-negative
		fmt.Fprintf(tw, "blake3:\t%x\n", hasher.Sum(nil))
		fmt.Fprintf(tw, "blocks:\t%d\n", c.Len())
		fmt.Fprintf(tw, "strings:\t%d\n", len(h.Strings()))
		for j, b := range c.Blocks() {
			note := ""
			if b.IsTombstone() {
				note = "skipped"
			}
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", j, b.Type, humanize.IBytes(uint64(h.BlockSize(j))), note)
		}
	}
	return tw.Flush()
}

func (a *app) copyContainer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: copy <name> <out>", errUsage)
	}
	res, closeAll, err := a.resolver(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	c := nif.New(node.Registry(), nif.WithResolver(res), nif.WithLogger(a.logger))
	if err := c.Load(ctx, args[0]); err != nil {
		return err
	}
	if err := c.Save(args[1]); err != nil {
		return err
	}
	a.logger.Info("container copied", "name", args[0], "out", args[1], "blocks", c.Len())
	return nil
}

func (a *app) pack(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("pack", pflag.ContinueOnError)
	flags.SetOutput(a.stderr)
	compression := flags.String("compression", "zstd", "entry compression (none, zstd, lz4)")
	workers := flags.Int("workers", 0, "files compressed in parallel (0 = GOMAXPROCS)")
	minSize := flags.Int64("min-compress-size", 64, "store files smaller than this uncompressed")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("%w: pack [flags] <dir> <out>", errUsage)
	}
	comp, ok := archive.ParseCompression(*compression)
	if !ok {
		return fmt.Errorf("%w: unknown compression %q", errUsage, *compression)
	}
	dir, out := flags.Arg(0), flags.Arg(1)

	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), ".npak-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()        //nolint:errcheck // best-effort cleanup
			_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		}
	}()

	err = archive.Create(ctx, dir, tmp,
		archive.CreateWithCompression(comp),
		archive.CreateWithSkipCompression(archive.DefaultSkipCompression(*minSize)),
		archive.CreateWithWorkers(*workers),
		archive.CreateWithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	info, err := tmp.Stat()
	if err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, out); err != nil {
		return err
	}
	committed = true

	a.logger.Info("archive packed", "out", out, "size", humanize.IBytes(uint64(info.Size()))) //nolint:gosec // size is non-negative
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: list <archive>", errUsage)
	}
	ar, err := a.openArchive(ctx, args[0])
	if err != nil {
		return err
	}
	defer ar.Close()

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tSTORED\tCOMPRESSION\tDIGEST")
	var total, stored uint64
	for e := range ar.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Name,
			humanize.IBytes(e.OriginalSize),
			humanize.IBytes(e.Size),
			e.Compression,
			shortDigest(e.Digest.Encoded()),
		)
		total += e.OriginalSize
		stored += e.Size
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "%s entries, %s (%s stored)\n",
		humanize.Comma(int64(ar.Len())), humanize.IBytes(total), humanize.IBytes(stored))
	return err
}

func shortDigest(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
