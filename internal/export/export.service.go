package export

import (
	"context"
	"fmt"

	"deckeditor/pkg/logger"
)

// Service starts exports in the background. Callers poll Status afterwards;
// there is no cancellation.
type Service struct {
	Coordinator *Coordinator
	Runner      Runner
}

func NewService(coordinator *Coordinator, runner Runner) *Service {
	return &Service{Coordinator: coordinator, Runner: runner}
}

// Start claims the export slot and runs the export in a goroutine. It returns
// apperror.ErrBusy when an export is already running. done, if non-nil, is
// closed after the slot has been released.
func (s *Service) Start(done chan<- struct{}) error {
	if err := s.Coordinator.Begin(); err != nil {
		return err
	}
	logger.Sugar.Info("Export started")

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("export panicked: %v", r)
				logger.Sugar.Error(err)
			}
			s.Coordinator.Finish(err)
			if done != nil {
				close(done)
			}
		}()
		err = s.Runner.Run(context.Background())
	}()
	return nil
}

func (s *Service) Status() Status {
	return s.Coordinator.Status()
}
