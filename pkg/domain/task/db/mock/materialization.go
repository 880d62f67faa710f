package mock

import (
	"context"
	"errors"

	dbmock "github.com/opst/eoflow/pkg/domain/internal/db/mock"
	kdb "github.com/opst/eoflow/pkg/domain/task/db"
)

type MaterializationInterface struct {
	Impl struct {
		Hold    func(ctx context.Context, taskId string, link string, materialize func() (string, error)) (bool, error)
		Release func(ctx context.Context, taskId string, restore func(link string, target string) error) error
	}

	Calls struct {
		Hold dbmock.CallLog[struct {
			TaskId string
			Link   string
		}]
		Release dbmock.CallLog[string]
	}
}

func NewMaterializationInterface() *MaterializationInterface {
	return &MaterializationInterface{}
}

var _ kdb.MaterializationInterface = &MaterializationInterface{}

func (m *MaterializationInterface) Hold(ctx context.Context, taskId string, link string, materialize func() (string, error)) (bool, error) {
	m.Calls.Hold = append(m.Calls.Hold, struct {
		TaskId string
		Link   string
	}{TaskId: taskId, Link: link})
	if m.Impl.Hold != nil {
		return m.Impl.Hold(ctx, taskId, link, materialize)
	}
	panic(errors.New("it should not be called"))
}

func (m *MaterializationInterface) Release(ctx context.Context, taskId string, restore func(link string, target string) error) error {
	m.Calls.Release = append(m.Calls.Release, taskId)
	if m.Impl.Release != nil {
		return m.Impl.Release(ctx, taskId, restore)
	}
	panic(errors.New("it should not be called"))
}
