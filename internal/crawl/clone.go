package crawl

import (
	"context"
	"fmt"
	"os"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Checkout is a shallow clone in a temporary directory.
type Checkout struct {
	Dir      string
	Revision string
}

// Close removes the clone.
func (c *Checkout) Close() error {
	return os.RemoveAll(c.Dir)
}

// Cloner fetches remote repositories for crawling.
type Cloner struct {
	token string
}

// NewCloner creates a Cloner. A non-empty token is sent as HTTP basic-auth
// password with username "x-token-auth", which GitHub and Bitbucket accept.
func NewCloner(token string) *Cloner {
	return &Cloner{token: token}
}

// Clone shallow-clones target, which may name a branch or tag after a '#'.
// The caller must Close the checkout.
func (c *Cloner) Clone(ctx context.Context, target string) (*Checkout, error) {
	url, ref := SplitRef(target)

	dir, err := os.MkdirTemp("", "licensematch-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	co := &Checkout{Dir: dir}

	opts := &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if c.token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-token-auth", Password: c.token}
	}

	repo, err := c.clone(ctx, dir, opts, ref)
	if err != nil {
		co.Close()
		return nil, fmt.Errorf("git clone %s: %w", url, err)
	}
	if head, err := repo.Head(); err == nil {
		co.Revision = head.Hash().String()
	}
	return co, nil
}

// clone tries ref as a branch, then as a tag.
func (c *Cloner) clone(ctx context.Context, dir string, opts *git.CloneOptions, ref string) (*git.Repository, error) {
	if ref == "" {
		return git.PlainCloneContext(ctx, dir, false, opts)
	}
	opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err == nil || ctx.Err() != nil {
		return repo, err
	}
	if rmErr := os.RemoveAll(dir); rmErr != nil {
		return nil, rmErr
	}
	if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
		return nil, mkErr
	}
	opts.ReferenceName = plumbing.NewTagReferenceName(ref)
	return git.PlainCloneContext(ctx, dir, false, opts)
}

// SplitRef separates "URL#ref" into the URL and the ref.
func SplitRef(target string) (url, ref string) {
	if i := strings.LastIndexByte(target, '#'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// IsRemote reports whether arg names a repository to clone rather than a
// local directory.
func IsRemote(arg string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "git@"} {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}
	return false
}
