package mock

import (
	"context"
	"errors"

	"github.com/opst/eoflow/pkg/domain"
	dbmock "github.com/opst/eoflow/pkg/domain/internal/db/mock"
	kdb "github.com/opst/eoflow/pkg/domain/job/db"
)

type JobInterface struct {
	Impl struct {
		New       func(ctx context.Context, param kdb.JobParam) (string, error)
		Get       func(ctx context.Context, jobId string) (*domain.ExecutionJob, error)
		Find      func(ctx context.Context, query domain.JobFindQuery) ([]string, error)
		SetStatus func(ctx context.Context, jobId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error
	}

	Calls struct {
		New       dbmock.CallLog[kdb.JobParam]
		Get       dbmock.CallLog[string]
		Find      dbmock.CallLog[domain.JobFindQuery]
		SetStatus dbmock.CallLog[struct {
			JobId  string
			From   []domain.ExecutionStatus
			Status domain.ExecutionStatus
		}]
	}
}

func NewJobInterface() *JobInterface {
	return &JobInterface{}
}

var _ kdb.JobInterface = &JobInterface{}

func (m *JobInterface) New(ctx context.Context, param kdb.JobParam) (string, error) {
	m.Calls.New = append(m.Calls.New, param)
	if m.Impl.New != nil {
		return m.Impl.New(ctx, param)
	}
	panic(errors.New("it should not be called"))
}

func (m *JobInterface) Get(ctx context.Context, jobId string) (*domain.ExecutionJob, error) {
	m.Calls.Get = append(m.Calls.Get, jobId)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, jobId)
	}
	panic(errors.New("it should not be called"))
}

func (m *JobInterface) Find(ctx context.Context, query domain.JobFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}
	panic(errors.New("it should not be called"))
}

func (m *JobInterface) SetStatus(ctx context.Context, jobId string, from []domain.ExecutionStatus, status domain.ExecutionStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		JobId  string
		From   []domain.ExecutionStatus
		Status domain.ExecutionStatus
	}{JobId: jobId, From: from, Status: status})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, jobId, from, status)
	}
	panic(errors.New("it should not be called"))
}
