package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ReplayResult summarises a recorded feed replay.
type ReplayResult struct {
	Lines   int
	Events  int
	Dropped int
}

// ReplayFile replays the recorded feed stored at path.
func ReplayFile(ctx context.Context, path string, bus *Bus, logger *zap.Logger) (ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("open feed log: %w", err)
	}
	defer f.Close()
	return Replay(ctx, f, bus, logger)
}

// Replay publishes every frame of a recorded feed, one frame per line.
// Anything before the frame marker on a line (a capture timestamp, for
// instance) is ignored. Bad frames are logged and counted, not fatal.
func Replay(ctx context.Context, r io.Reader, bus *Bus, logger *zap.Logger) (ReplayResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var result ReplayResult
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.Lines++

		if i := strings.Index(line, "![k["); i > 0 {
			line = line[i:]
		}
		msg, err := ParseMessage(line)
		if err != nil {
			result.Dropped++
			logger.Warn("skipping feed log line", zap.Int("line", result.Lines), zap.Error(err))
			continue
		}
		event, ok, err := Decode(msg)
		if err != nil {
			result.Dropped++
			logger.Warn("skipping feed log line", zap.Int("line", result.Lines), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if err := bus.Publish(event); err != nil {
			result.Dropped++
			logger.Warn("feed event rejected", zap.Int("line", result.Lines), zap.Error(err))
			continue
		}
		result.Events++
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read feed log: %w", err)
	}
	return result, nil
}
