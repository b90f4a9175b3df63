package bundle

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // required for file:// owners
	_ "gocloud.dev/blob/memblob"  // required for mem:// owners
	"gocloud.dev/gcerrors"

	"github.com/pitabwire/nils/localization"
)

// source reads message files relative to an owner location.
type source interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// openSource resolves owner to a local directory or, when it carries a scheme, a blob bucket.
func openSource(ctx context.Context, owner localization.Owner) (source, error) {
	location := owner.String()

	if strings.Contains(location, "://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, localization.InvalidSource.Wrap(err, location, err.Error())
		}
		if u.Scheme == "" {
			return nil, localization.InvalidSource.New(location, "missing scheme")
		}

		bucket, err := blob.OpenBucket(ctx, location)
		if err != nil {
			return nil, localization.InvalidSource.Wrap(err, location, err.Error())
		}
		return &bucketSource{bucket: bucket}, nil
	}

	info, err := os.Stat(location)
	if err == nil && !info.IsDir() {
		return nil, localization.InvalidSource.New(location, "not a directory")
	}
	// a missing directory simply has no candidates
	return &dirSource{fsys: os.DirFS(location)}, nil
}

// isNotExist reports whether err means the candidate file is absent.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || gcerrors.Code(err) == gcerrors.NotFound
}

type dirSource struct {
	fsys fs.FS
}

func (d *dirSource) ReadFile(_ context.Context, name string) ([]byte, error) {
	return fs.ReadFile(d.fsys, name)
}

func (d *dirSource) Close() error {
	return nil
}

type bucketSource struct {
	bucket *blob.Bucket
}

func (b *bucketSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return b.bucket.ReadAll(ctx, name)
}

func (b *bucketSource) Close() error {
	return b.bucket.Close()
}
