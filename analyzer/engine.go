package analyzer

import (
	"context"

	"github.com/crittrail/crittrail/models"
)

// Request is a single unit of analysis. When Content is nil the engine
// reads the file at Path from disk. When Content is set it is piped to the
// engine on stdin and Path only labels the result, which is how blobs taken
// from a git commit are analyzed without a checkout.
type Request struct {
	Path        string
	Content     []byte
	Profile     string
	MinSeverity int
}

// Result holds everything one engine run produced for one file.
type Result struct {
	Set     *models.ViolationSet
	Metrics models.FileMetrics
}

// Engine is an external static-analysis tool. All policy knowledge lives
// behind this interface; nothing else in the codebase interprets Perl.
type Engine interface {
	Name() string
	Version(ctx context.Context) (string, error)
	Analyze(ctx context.Context, req Request) (*Result, error)
}
