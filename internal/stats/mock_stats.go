package stats

import "github.com/stretchr/testify/mock"

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Incr(name string) {
	m.Called(name)
}

func (m *MockRecorder) RegisterMetric(name string) {
	m.Called(name)
}
