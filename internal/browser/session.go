// Package browser wraps a headless Chromium session behind small interfaces
// so the worker can be exercised against fakes in tests.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/prathamsoni002/migration-automation-service/config"
)

// Element is a handle to a located page element.
type Element interface {
	Text() (string, error)
	Click() error
	Input(text string) error
	SetFiles(path string) error
	Parent() (Element, error)
}

// Session is one isolated browser automation session. All methods block and
// carry bounded timeouts; Quit must be called on every exit path.
type Session interface {
	Navigate(url string) error
	CurrentURL() (string, error)
	// Element waits up to timeout for the element located by xpath to appear.
	Element(xpath string, timeout time.Duration) (Element, error)
	// Elements returns all matches immediately, without waiting.
	Elements(xpath string) ([]Element, error)
	// EvalBool runs a JS function in the page and returns its boolean result.
	EvalBool(js string, args ...interface{}) (bool, error)
	Quit() error
}

// SessionOptions 每个任务独立的会话参数
type SessionOptions struct {
	DownloadDir string
}

// Launcher produces fresh sessions, one per task.
type Launcher interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}

// RodLauncher launches headless Chromium through go-rod.
type RodLauncher struct {
	cfg config.BrowserConfig
}

func NewRodLauncher(cfg config.BrowserConfig) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

func (l *RodLauncher) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	launch := launcher.New().Headless(l.cfg.Headless)
	if l.cfg.Bin != "" {
		launch = launch.Bin(l.cfg.Bin)
	}
	launch = launch.
		Set(flags.Flag("no-sandbox")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("disable-gpu"))

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	width := l.cfg.WindowWidth
	if width == 0 {
		width = 1920
	}
	height := l.cfg.WindowHeight
	if height == 0 {
		height = 1080
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if opts.DownloadDir != "" {
		if err := (proto.BrowserSetDownloadBehavior{
			Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath: opts.DownloadDir,
		}).Call(page); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("set download dir: %w", err)
		}
	}

	return &rodSession{
		id:         uuid.NewString(),
		browser:    b,
		page:       page,
		navTimeout: l.cfg.NavTimeout(),
	}, nil
}

type rodSession struct {
	id         string
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration
}

func (s *rodSession) Navigate(url string) error {
	return s.page.Timeout(s.navTimeout).Navigate(url)
}

func (s *rodSession) CurrentURL() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (s *rodSession) Element(xpath string, timeout time.Duration) (Element, error) {
	el, err := s.page.Timeout(timeout).ElementX(xpath)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", xpath, err)
	}
	return &rodElement{el: el}, nil
}

func (s *rodSession) Elements(xpath string) ([]Element, error) {
	els, err := s.page.ElementsX(xpath)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (s *rodSession) EvalBool(js string, args ...interface{}) (bool, error) {
	res, err := s.page.Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
		UserGesture:  true,
	})
	if err != nil || res == nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (s *rodSession) Quit() error {
	return s.browser.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Input(text string) error {
	return e.el.Input(text)
}

func (e *rodElement) SetFiles(path string) error {
	return e.el.SetFiles([]string{path})
}

func (e *rodElement) Parent() (Element, error) {
	parent, err := e.el.Parent()
	if err != nil {
		return nil, err
	}
	return &rodElement{el: parent}, nil
}
