package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChecker_AllUp(t *testing.T) {
	c := NewChecker(0)
	c.Register("postgres", func(context.Context) error { return nil })
	c.Register("redis", func(context.Context) error { return nil })
	r := c.Check(context.Background())
	if !r.Healthy {
		t.Fatalf("report = %+v, want healthy", r)
	}
	if len(r.Results) != 2 || r.Results[0].Name != "postgres" || r.Results[1].Name != "redis" {
		t.Errorf("results = %+v, want sorted postgres, redis", r.Results)
	}
}

func TestChecker_Failure(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("postgres", func(context.Context) error { return errors.New("connection refused") })
	c.Register("redis", func(context.Context) error { return nil })
	r := c.Check(context.Background())
	if r.Healthy {
		t.Fatal("report should be unhealthy")
	}
	if r.Results[0].Status != StatusDown || r.Results[0].Error != "connection refused" {
		t.Errorf("postgres result = %+v", r.Results[0])
	}
	if r.Results[1].Status != StatusUp {
		t.Errorf("redis result = %+v", r.Results[1])
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	r := c.Check(context.Background())
	if r.Healthy || r.Results[0].Status != StatusDown {
		t.Errorf("slow check should time out: %+v", r)
	}
}

func TestChecker_Empty(t *testing.T) {
	if r := NewChecker(0).Check(context.Background()); !r.Healthy || len(r.Results) != 0 {
		t.Errorf("empty checker = %+v", r)
	}
}
