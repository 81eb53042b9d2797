package uid

import (
	"crypto/rand"
	"math/big"
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered numeric IDs safe across nodes.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a Snowflake generator. The node number comes from the
// SNOWFLAKE_NODE environment variable, falling back to a random node when the
// variable is unset or invalid.
func NewSnowflake() (*Snowflake, error) {
	nodeNum, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64)
	if err != nil || nodeNum < 0 || nodeNum > 1023 {
		n, randErr := rand.Int(rand.Reader, big.NewInt(1024))
		if randErr != nil {
			return nil, randErr
		}
		nodeNum = n.Int64()
	}

	node, err := snowflake.NewNode(nodeNum)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns a new snowflake ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
