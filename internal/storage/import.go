package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"regwatch/internal/model"
)

// ImportChatIDs reads one chat ID per line (the legacy chat_ids.txt format)
// and registers each as a destination. Blank lines are skipped. It returns
// the number of newly registered chats.
func ImportChatIDs(ctx context.Context, s Storage, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	added := 0
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return added, fmt.Errorf("line %d: invalid chat ID %q", line, raw)
		}
		created, err := s.AddDestination(ctx, &model.Destination{ChatID: id})
		if err != nil {
			return added, fmt.Errorf("line %d: %w", line, err)
		}
		if created {
			added++
		}
	}
	if err := sc.Err(); err != nil {
		return added, fmt.Errorf("read chat IDs: %w", err)
	}
	return added, nil
}
