package engine

import "context"

// Fallback tries Primary first and retries on Secondary when Primary fails
// before emitting any token. Once tokens have streamed to the caller a
// retry would duplicate output, so mid-stream failures are returned as-is.
type Fallback struct {
	Primary   Engine
	Secondary Engine
}

// Generate implements Engine.
func (f *Fallback) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	emitted := false
	wrapped := stream
	if stream != nil {
		wrapped = func(tok string) {
			emitted = true
			stream(tok)
		}
	}

	result, err := f.Primary.Generate(ctx, req, wrapped)
	if err == nil || f.Secondary == nil || emitted || ctx.Err() != nil {
		return result, err
	}
	return f.Secondary.Generate(ctx, req, stream)
}

// Close implements Engine.
func (f *Fallback) Close() error {
	err := f.Primary.Close()
	if f.Secondary != nil {
		if cerr := f.Secondary.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
