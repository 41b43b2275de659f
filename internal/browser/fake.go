package browser

import (
	"context"
	"fmt"

	"ticketflow/internal/dom"
)

// FakePage is an in-memory Page used by tests. Behavior is driven by the
// exported fields; every interaction is recorded for assertions.
type FakePage struct {
	Selectors map[string][]dom.ElementDescriptor
	QueryErrs map[string]error
	Body      string
	PageTitle string
	URL       string

	Navigations []string
	ReloadLog   []bool
	HumanClicks []string
	Dispatches  []string
	DirectHits  []string
	Fills       map[string]string

	// Hooks let scenario tests mutate page state mid-flow, e.g. clearing
	// queue keywords after the second reload.
	OnNavigate func(url string)
	OnReload   func(hard bool)

	FailHumanClick bool
	FailDispatch   bool
	FailDirect     bool
}

// NewFakePage returns an empty fake.
func NewFakePage() *FakePage {
	return &FakePage{
		Selectors: make(map[string][]dom.ElementDescriptor),
		QueryErrs: make(map[string]error),
		Fills:     make(map[string]string),
	}
}

func (f *FakePage) Query(_ context.Context, selector string) ([]dom.ElementDescriptor, error) {
	if err, ok := f.QueryErrs[selector]; ok {
		return nil, err
	}
	return append([]dom.ElementDescriptor(nil), f.Selectors[selector]...), nil
}

func (f *FakePage) BodyText(context.Context) (string, error) { return f.Body, nil }
func (f *FakePage) Title(context.Context) (string, error)    { return f.PageTitle, nil }

func (f *FakePage) Exists(_ context.Context, selector string) (bool, error) {
	return len(f.Selectors[selector]) > 0, nil
}

func (f *FakePage) Navigate(_ context.Context, url string) error {
	f.Navigations = append(f.Navigations, url)
	f.URL = url
	if f.OnNavigate != nil {
		f.OnNavigate(url)
	}
	return nil
}

func (f *FakePage) Reload(_ context.Context, hard bool) error {
	f.ReloadLog = append(f.ReloadLog, hard)
	if f.OnReload != nil {
		f.OnReload(hard)
	}
	return nil
}

func (f *FakePage) CurrentURL(context.Context) (string, error) { return f.URL, nil }

func (f *FakePage) HumanClick(_ context.Context, el dom.ElementDescriptor) error {
	if f.FailHumanClick {
		return fmt.Errorf("humanized click failed on %s", el.Path)
	}
	f.HumanClicks = append(f.HumanClicks, el.Path)
	return nil
}

func (f *FakePage) DispatchClick(_ context.Context, path string) error {
	if f.FailDispatch {
		return fmt.Errorf("event dispatch failed on %s", path)
	}
	f.Dispatches = append(f.Dispatches, path)
	return nil
}

func (f *FakePage) DirectClick(_ context.Context, path string) error {
	if f.FailDirect {
		return fmt.Errorf("direct click failed on %s", path)
	}
	f.DirectHits = append(f.DirectHits, path)
	return nil
}

func (f *FakePage) Fill(_ context.Context, selector, value string) error {
	f.Fills[selector] = value
	return nil
}
