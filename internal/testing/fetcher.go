package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/desertthunder/coursex/internal/models"
)

// FakeFetcher is a scriptable course data source.
//
// Bundles and errors are keyed by course id. When Gate is set, every call blocks until
// a value is sent on it (or the context ends), which lets tests control completion order.
type FakeFetcher struct {
	mu sync.Mutex

	Bundles     map[string]*models.Bundle
	BundleErr   map[string]error
	CourseErr   map[string]error
	CompleteErr map[string]error
	DeleteErr   map[string]error
	Gate        chan struct{}

	bundleCalls   []string
	courseCalls   []string
	completeCalls []string
	deleteCalls   []string
}

// NewFakeFetcher returns an empty [FakeFetcher].
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		Bundles:     map[string]*models.Bundle{},
		BundleErr:   map[string]error{},
		CourseErr:   map[string]error{},
		CompleteErr: map[string]error{},
		DeleteErr:   map[string]error{},
	}
}

// SetBundle registers the bundle served for its course id.
func (f *FakeFetcher) SetBundle(b models.Bundle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Bundles[b.Course.CourseID] = &b
}

func (f *FakeFetcher) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.Gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchCourseBundle returns a copy of the registered bundle.
func (f *FakeFetcher) FetchCourseBundle(ctx context.Context, courseID string) (*models.Bundle, error) {
	f.mu.Lock()
	f.bundleCalls = append(f.bundleCalls, courseID)
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.BundleErr[courseID]; err != nil {
		return nil, err
	}
	b, ok := f.Bundles[courseID]
	if !ok {
		return nil, errors.New("course not found")
	}
	return &models.Bundle{Course: *b.Course.Clone(), Sections: models.CloneSections(b.Sections)}, nil
}

// FetchCourse returns the course of the registered bundle.
func (f *FakeFetcher) FetchCourse(ctx context.Context, courseID string) (*models.Course, error) {
	f.mu.Lock()
	f.courseCalls = append(f.courseCalls, courseID)
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CourseErr[courseID]; err != nil {
		return nil, err
	}
	b, ok := f.Bundles[courseID]
	if !ok {
		return nil, errors.New("course not found")
	}
	return b.Course.Clone(), nil
}

// MarkSectionComplete records the call and flags the section in every registered bundle.
func (f *FakeFetcher) MarkSectionComplete(ctx context.Context, sectionID string) error {
	f.mu.Lock()
	f.completeCalls = append(f.completeCalls, sectionID)
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CompleteErr[sectionID]; err != nil {
		return err
	}
	for _, b := range f.Bundles {
		for i := range b.Sections {
			if b.Sections[i].SectionID == sectionID {
				b.Sections[i].IsCompleted = true
			}
		}
	}
	return nil
}

// DeleteCourse records the call and forgets the bundle.
func (f *FakeFetcher) DeleteCourse(ctx context.Context, courseID string) error {
	f.mu.Lock()
	f.deleteCalls = append(f.deleteCalls, courseID)
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DeleteErr[courseID]; err != nil {
		return err
	}
	delete(f.Bundles, courseID)
	return nil
}

// BundleCalls returns the course ids passed to FetchCourseBundle, in call order.
func (f *FakeFetcher) BundleCalls() []string { return f.calls(&f.bundleCalls) }

// CourseCalls returns the course ids passed to FetchCourse, in call order.
func (f *FakeFetcher) CourseCalls() []string { return f.calls(&f.courseCalls) }

// CompleteCalls returns the section ids passed to MarkSectionComplete, in call order.
func (f *FakeFetcher) CompleteCalls() []string { return f.calls(&f.completeCalls) }

// DeleteCalls returns the course ids passed to DeleteCourse, in call order.
func (f *FakeFetcher) DeleteCalls() []string { return f.calls(&f.deleteCalls) }

func (f *FakeFetcher) calls(list *[]string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), (*list)...)
}
