package mocks

import (
	"context"

	"edu-arena/internal/domain"
	"github.com/stretchr/testify/mock"
)

type FeedPublisherMock struct {
	mock.Mock
}

func (m *FeedPublisherMock) Publish(ctx context.Context, event domain.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
