package main

import (
	"os"
	"path/filepath"

	"github.com/aretw0/actorflow/pkg/adapters/diskv"
	"github.com/aretw0/actorflow/pkg/adapters/file"
	"github.com/aretw0/actorflow/pkg/adapters/redis"
	"github.com/aretw0/actorflow/pkg/persistence/middleware"
	"github.com/aretw0/actorflow/pkg/ports"
	"github.com/spf13/cobra"
)

// EncryptionKeyEnv supplies the snapshot encryption key when --encryption-key is not set.
const EncryptionKeyEnv = "ACTORFLOW_ENCRYPTION_KEY"

// stores holds the snapshot store selected by the command flags.
type stores struct {
	state  ports.StateStore
	locker ports.DistributedLocker
	close  func() error
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis", "", "Redis address for session snapshots and locking (host:port)")
	cmd.Flags().String("state-dir", "", "Directory of a diskv snapshot store")
	cmd.Flags().String("encryption-key", "", "AES-256 key (hex or base64) sealing snapshots; defaults to $"+EncryptionKeyEnv)
}

// openStores picks Redis, then diskv, then JSON files under <dir>/.actorflow/sessions,
// and seals snapshots when an encryption key is configured.
func openStores(cmd *cobra.Command) (stores, error) {
	st := stores{close: func() error { return nil }}
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		store := redis.New(addr, "", 0)
		st.state = store
		st.locker = redis.NewLocker(store.Client(), redis.DefaultPrefix)
		st.close = store.Close
	} else if dir, _ := cmd.Flags().GetString("state-dir"); dir != "" {
		st.state = diskv.New(dir)
	} else {
		dir, _ := cmd.Flags().GetString("dir")
		st.state = file.NewStore(filepath.Join(dir, ".actorflow", "sessions"))
	}

	raw, _ := cmd.Flags().GetString("encryption-key")
	if raw == "" {
		raw = os.Getenv(EncryptionKeyEnv)
	}
	if raw == "" {
		return st, nil
	}
	key, err := middleware.ParseKey(raw)
	if err != nil {
		_ = st.close()
		return stores{}, err
	}
	st.state = middleware.Chain(st.state, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	return st, nil
}
