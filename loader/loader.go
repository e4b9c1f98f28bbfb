// SPDX-License-Identifier: EPL-2.0

// Package loader fetches audio assets and decodes them into buffers ready
// for playback.
//
// Assets are addressed by URL. http and https URLs are fetched over the
// network, file URLs and bare paths are read from disk, and relative
// references are resolved against a configurable base first.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/audsched/audio"
	"github.com/ik5/audsched/formats"
)

// MaxAssetSize bounds how many encoded bytes one asset may occupy.
const MaxAssetSize = 256 << 20

const sniffLen = 16

type Options struct {
	// Registry defaults to every bundled decoder.
	Registry *audio.Registry
	Client   *http.Client
	// Base resolves relative asset URLs. It may be a URL or a directory.
	Base string
	// SampleRate converts every asset to this rate. Zero keeps the native rate.
	SampleRate int
	// Mono downmixes multichannel assets.
	Mono    bool
	Timeout time.Duration
	Logger  slog.Logger
}

type Loader struct {
	reg     *audio.Registry
	http    *http.Client
	base    *url.URL
	rate    int
	mono    bool
	timeout time.Duration
	log     slog.Logger
}

func New(opts Options) (*Loader, error) {
	l := &Loader{
		reg:     opts.Registry,
		http:    opts.Client,
		rate:    opts.SampleRate,
		mono:    opts.Mono,
		timeout: opts.Timeout,
		log:     opts.Logger,
	}
	if l.reg == nil {
		l.reg = formats.NewRegistry()
	}
	if l.http == nil {
		l.http = &http.Client{}
	}
	if l.log == nil {
		l.log = slog.Disabled
	}

	if opts.Base != "" {
		base, err := parseBase(opts.Base)
		if err != nil {
			return nil, fmt.Errorf("asset base %q: %w", opts.Base, err)
		}
		l.base = base
	}

	return l, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err == nil && len(u.Scheme) > 1 {
		return u, nil
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return nil, err
	}

	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs) + "/"}, nil
}

// resolve turns an asset reference into an absolute URL. References without
// a scheme are local paths unless a base is configured.
func (l *Loader) resolve(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || len(u.Scheme) == 1 {
		// a Windows drive letter parses as a scheme
		return &url.URL{Scheme: "file", Path: filepath.ToSlash(raw)}, nil
	}
	if u.Scheme != "" {
		return u, nil
	}
	if l.base != nil {
		return l.base.ResolveReference(u), nil
	}

	return &url.URL{Scheme: "file", Path: raw}, nil
}

// Load fetches and decodes the asset at rawURL.
func (l *Loader) Load(ctx context.Context, rawURL string) (*audio.Buffer, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	u, err := l.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	data, err := l.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	buf, err := l.decode(u.Path, data)
	if err != nil {
		return nil, err
	}

	l.log.Debugf("Loaded %s: %d frames, %d ch @ %d Hz", u.Redacted(), buf.Frames(), buf.NumChannels(), buf.SampleRate)

	return buf, nil
}

func (l *Loader) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, u)
	case "file":
		return readFile(filepath.FromSlash(u.Path))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	return readLimited(resp.Body)
}

func readFile(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if len(data) > MaxAssetSize {
		return nil, ErrTooLarge
	}

	return data, nil
}

func (l *Loader) decode(name string, data []byte) (*audio.Buffer, error) {
	format, ok := formats.Detect(name, data[:min(len(data), sniffLen)])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
	}
	dec, ok := l.reg.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrUnsupportedFormat, format)
	}

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	if l.mono && src.Channels() > 1 {
		src = audio.NewMonoMixer(src)
	}
	if l.rate > 0 && src.SampleRate() != l.rate {
		src = audio.NewResampler(src, l.rate)
	}
	defer src.Close()

	buf, err := audio.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	if buf.Frames() == 0 {
		return nil, ErrEmptyAsset
	}

	return buf, nil
}
