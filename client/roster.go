package client

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"rentezy-chat/contract"
)

// RosterEntry is one past counterpart, ready to render.
type RosterEntry struct {
	ID    string
	Label string
}

// RosterService lists everyone the user has exchanged at least one
// message with. Labels come from the directory; a counterpart the
// directory no longer knows keeps its slot under a placeholder, history
// outlives accounts.
type RosterService struct {
	log       *slog.Logger
	store     contract.MessageStore
	directory contract.Directory
}

func NewRosterService(log *slog.Logger, store contract.MessageStore, directory contract.Directory) *RosterService {
	return &RosterService{
		log:       log,
		store:     store,
		directory: directory,
	}
}

// List returns the roster for user, one entry per distinct counterpart.
func (r *RosterService) List(ctx context.Context, user string) ([]RosterEntry, error) {
	counterparts, err := r.store.RosterFor(ctx, user)
	if err != nil {
		return nil, err
	}

	return lo.Map(counterparts, func(id string, _ int) RosterEntry {
		label, err := r.directory.ResolveLabel(ctx, id)
		if err != nil {
			r.log.Debug("counterpart label unavailable", "id", id, "error", err)
			label = "unknown user"
		}
		return RosterEntry{ID: id, Label: label}
	}), nil
}
