// Command cleanup wipes every invite from the store. Pre-launch reset only;
// it is deliberately not reachable over HTTP.
package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/deninthomas/housewarming/internal/config"
	"github.com/deninthomas/housewarming/internal/store"
)

func main() {
	cfg := config.Load()

	log.SetFormatter(&log.JSONFormatter{})

	s, err := store.NewBBoltStore(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open bbolt store")
	}
	defer s.Close()

	count, err := s.DeleteAllInvites(context.Background())
	if err != nil {
		log.WithError(err).Fatal("cleanup failed")
	}

	log.WithField("deleted", count).Info("store cleanup complete")
}
