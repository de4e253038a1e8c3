package common

import (
	"math/rand"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	snowflakeNode *snowflake.Node
	nodeOnce      sync.Once
)

func node() *snowflake.Node {
	nodeOnce.Do(func() {
		n, err := snowflake.NewNode(rand.New(rand.NewSource(time.Now().UnixNano())).Int63n(1023))
		if err != nil {
			panic(err)
		}
		snowflakeNode = n
	})
	return snowflakeNode
}

// UUIDint64 returns a cluster-unique int64 id for new database rows.
func UUIDint64() int64 {
	return node().Generate().Int64()
}

// UUID returns the string form of a snowflake id.
func UUID() string {
	return node().Generate().String()
}
