package repository

import (
	"testing"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
	"github.com/stretchr/testify/require"
)

func TestOrderIDs_Distinct(t *testing.T) {
	ids := orderIDs([]content.OrderItem{{ID: "a", Order: 1}, {ID: "b", Order: 2}, {ID: "a", Order: 3}})
	require.Equal(t, []string{"a", "b"}, ids)
	require.Empty(t, orderIDs(nil))
}
