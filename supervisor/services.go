// File: supervisor/services.go
// Package supervisor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"sync"

	"github.com/thejerf/suture/v4"
)

// joined closes done when the wrapped service returns.
type joined struct {
	suture.Service
	done chan struct{}
	once sync.Once
}

func (j *joined) Serve(ctx context.Context) error {
	err := j.Service.Serve(ctx)
	if errors.Is(err, suture.ErrDoNotRestart) || ctx.Err() != nil {
		j.once.Do(func() { close(j.done) })
	}
	return err
}

func (j *joined) String() string {
	if s, ok := j.Service.(interface{ String() string }); ok {
		return s.String()
	}
	return "service"
}

// service runs fn once; it is not restarted when fn returns.
type service struct {
	name string
	run  func(context.Context) error
}

func (s *service) Serve(ctx context.Context) error {
	if err := s.run(ctx); err != nil {
		return err
	}
	return suture.ErrDoNotRestart
}

func (s *service) String() string {
	return s.name
}
