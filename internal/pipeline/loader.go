package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/util"
)

// Stdin is the source name that reads standard input
const Stdin = "-"

var (
	// ErrTooLarge is returned for a source larger than the loader limit
	ErrTooLarge = errors.New("input exceeds size limit")

	// ErrDisallowed is returned for a URL its site's robots.txt excludes
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

const userAgent = "rubriccheck"

// Input is one loaded source. Plain text lands in Text; anything else is
// carried as an uploaded file.
type Input struct {
	Name string
	Text string
	File *model.UploadedFile
}

// Inputs names the sources of one grading request
type Inputs struct {
	Rubric         []string
	RubricText     string
	Submission     []string
	SubmissionText string
	Explanation    string
	Strict         bool
	WorkType       model.WorkType
}

// Loader reads rubrics and submissions from files, URLs or stdin
type Loader struct {
	httpClient *http.Client
	maxBytes   int64
	stdin      io.Reader
	robots     *util.RobotsChecker
}

// NewLoader creates a loader. maxBytes bounds every source; zero means
// no limit.
func NewLoader(timeout time.Duration, maxBytes int64, proxy model.LLMConfig) *Loader {
	return &Loader{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(proxy.HTTPProxy, proxy.HTTPSProxy, proxy.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		stdin:    os.Stdin,
	}
}

// RespectRobots makes URL sources honour robots.txt
func (l *Loader) RespectRobots() *Loader {
	l.robots = util.NewRobotsChecker(userAgent, l.httpClient)
	return l
}

// Load reads one source
func (l *Loader) Load(ctx context.Context, source string) (*Input, error) {
	var (
		name string
		data []byte
		err  error
	)

	switch {
	case source == Stdin:
		name = "stdin"
		data, err = l.read(l.stdin)
	case isURL(source):
		name = sourceName(source)
		data, err = l.fetch(ctx, source)
	default:
		name = filepath.Base(source)
		data, err = l.readFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	mt := mimetype.Detect(data)
	if mt.Is("text/plain") {
		return &Input{Name: name, Text: strings.TrimPrefix(string(data), "\ufeff")}, nil
	}

	mimeType := mt.String()
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return &Input{
		Name: name,
		File: &model.UploadedFile{
			Name:     name,
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		},
	}, nil
}

// Request loads every source of in and assembles a grading request.
// Text sources are joined with blank lines after any inline text; other
// sources become uploads in the order given.
func (l *Loader) Request(ctx context.Context, in Inputs) (model.GradeRequest, error) {
	rubricText, rubricFiles, err := l.collect(ctx, in.RubricText, in.Rubric)
	if err != nil {
		return model.GradeRequest{}, fmt.Errorf("rubric: %w", err)
	}
	submissionText, submissionFiles, err := l.collect(ctx, in.SubmissionText, in.Submission)
	if err != nil {
		return model.GradeRequest{}, fmt.Errorf("submission: %w", err)
	}

	return model.GradeRequest{
		RubricText:      rubricText,
		RubricFiles:     rubricFiles,
		SubmissionText:  submissionText,
		SubmissionFiles: submissionFiles,
		Explanation:     in.Explanation,
		Strict:          in.Strict,
		WorkType:        in.WorkType,
	}, nil
}

func (l *Loader) collect(ctx context.Context, inline string, sources []string) (string, []model.UploadedFile, error) {
	var texts []string
	if strings.TrimSpace(inline) != "" {
		texts = append(texts, inline)
	}

	var files []model.UploadedFile
	for _, src := range sources {
		in, err := l.Load(ctx, src)
		if err != nil {
			return "", nil, err
		}
		if in.File != nil {
			files = append(files, *in.File)
		} else {
			texts = append(texts, in.Text)
		}
	}
	return strings.Join(texts, "\n\n"), files, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return l.read(f)
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if l.robots != nil {
		allowed, err := l.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrDisallowed
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return l.read(resp.Body)
}

// read drains r, failing when it holds more than maxBytes
func (l *Loader) read(r io.Reader) ([]byte, error) {
	if l.maxBytes <= 0 {
		return io.ReadAll(r)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if n > l.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, l.maxBytes)
	}
	return buf.Bytes(), nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// sourceName is the last path segment of a URL, or its host
func sourceName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	p := strings.Trim(parsed.Path, "/")
	if p == "" {
		return parsed.Host
	}
	segments := strings.Split(p, "/")
	return segments[len(segments)-1]
}
