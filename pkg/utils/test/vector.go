package testutils

import (
	"context"
	"slices"

	"github.com/inklingco/inkling/pkg/vector"
)

// MockVectorDriver is an in-memory vector.Driver double with scripted
// query results.
type MockVectorDriver struct {
	// Documents accumulates everything passed to Add.
	Documents []vector.Document

	// Results is what Query returns, capped at topK.
	Results []vector.QueryResult

	// Deleted accumulates every ID passed to Delete.
	Deleted []string

	// AddErr and QueryErr, when set, are returned by the matching call.
	AddErr   error
	QueryErr error
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	var docs []vector.Document
	for _, doc := range m.Documents {
		if slices.Contains(ids, doc.ID) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.Deleted = append(m.Deleted, ids...)
	m.Documents = slices.DeleteFunc(m.Documents, func(doc vector.Document) bool {
		return slices.Contains(ids, doc.ID)
	})
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
