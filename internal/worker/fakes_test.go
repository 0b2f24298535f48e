package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prathamsoni002/migration-automation-service/internal/browser"
	"github.com/prathamsoni002/migration-automation-service/internal/model"
)

// fakeElement 可编程的页面元素
type fakeElement struct {
	text       string
	textErr    error
	clickErr   error
	inputErr   error
	setFileErr error
	parent     *fakeElement
	onClick    func() error

	inputs []string
	files  []string
	clicks int
}

func (e *fakeElement) Text() (string, error) { return e.text, e.textErr }

func (e *fakeElement) Click() error {
	e.clicks++
	if e.onClick != nil {
		return e.onClick()
	}
	return e.clickErr
}

func (e *fakeElement) Input(text string) error {
	e.inputs = append(e.inputs, text)
	return e.inputErr
}

func (e *fakeElement) SetFiles(path string) error {
	if e.setFileErr != nil {
		return e.setFileErr
	}
	e.files = append(e.files, path)
	return nil
}

func (e *fakeElement) Parent() (browser.Element, error) {
	if e.parent == nil {
		return nil, fmt.Errorf("no parent")
	}
	return e.parent, nil
}

// fakeSession 以 xpath 为键返回预置元素的会话
type fakeSession struct {
	mu sync.Mutex

	elements  map[string]*fakeElement   // Element 按 xpath 查找
	lists     map[string][]*fakeElement // Elements 按 xpath 查找
	url       string
	navErr    error
	evalOK    bool
	evalErr   error
	navigated []string
	evalCalls int
	quits     int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		elements: make(map[string]*fakeElement),
		lists:    make(map[string][]*fakeElement),
	}
}

func (s *fakeSession) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	return s.navErr
}

func (s *fakeSession) CurrentURL() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *fakeSession) Element(xpath string, timeout time.Duration) (browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[xpath]
	if !ok {
		return nil, fmt.Errorf("element %s: not found", xpath)
	}
	return el, nil
}

func (s *fakeSession) Elements(xpath string) ([]browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	els := s.lists[xpath]
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (s *fakeSession) EvalBool(js string, args ...interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalCalls++
	return s.evalOK, s.evalErr
}

func (s *fakeSession) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quits++
	return nil
}

// fakeLauncher 总是返回同一个会话
type fakeLauncher struct {
	session *fakeSession
	err     error
	calls   int
}

func (l *fakeLauncher) NewSession(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

// fakeDispatcher 记录转发请求并返回预置结果
type fakeDispatcher struct {
	result bool
	sent   []string
}

func (d *fakeDispatcher) SendErrorReport(ctx context.Context, filePath, taskID string) bool {
	d.sent = append(d.sent, filePath)
	return d.result
}

// fakeNotifier 记录进度推送
type fakeNotifier struct {
	mu      sync.Mutex
	updates []model.Task
}

func (n *fakeNotifier) NotifyTask(taskID string, task model.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, task)
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.updates))
	for _, t := range n.updates {
		out = append(out, t.Message)
	}
	return out
}
