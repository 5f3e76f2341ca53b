package memory_test

import (
	"testing"

	"github.com/aretw0/actorflow/pkg/adapters/memory"
	contract "github.com/aretw0/actorflow/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	contract.RunStateStoreContract(t, memory.NewStore())
}
