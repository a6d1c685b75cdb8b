package landmark

import (
	"LivenessGolang/internal/entity"
	"context"
	"errors"
	"fmt"
	"sync"
)

// Pool hands out detectors for exclusive use. It is created once at startup,
// used for the lifetime of the server and closed on shutdown.
type Pool struct {
	idle chan Detector
	all  []Detector
	done chan struct{}
	once sync.Once
}

func NewPool(size int, factory func() (Detector, error)) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	p := &Pool{
		idle: make(chan Detector, size),
		all:  make([]Detector, 0, size),
		done: make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		d, err := factory()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to create detector %d: %w", i, err)
		}
		p.all = append(p.all, d)
		p.idle <- d
	}

	return p, nil
}

func (p *Pool) Acquire(ctx context.Context) (Detector, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case d := <-p.idle:
		return d, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) Release(d Detector) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.idle <- d:
	default:
	}
}

func (p *Pool) Detect(ctx context.Context, frame []byte) (*entity.FaceLandmarks, error) {
	d, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(d)

	return d.Detect(ctx, frame)
}

func (p *Pool) Size() int {
	return len(p.all)
}

func (p *Pool) Close() error {
	var errs []error
	p.once.Do(func() {
		close(p.done)
		for _, d := range p.all {
			if err := d.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
