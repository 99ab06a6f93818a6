package mappers

import "github.com/orris-inc/paybridge/internal/shared/utils"

// reasonColumnSize is the size of every free-text reason column.
const reasonColumnSize = 500

// clampReason keeps gateway-supplied text within its column.
func clampReason(s string) string {
	return utils.Truncate(s, reasonColumnSize-len("..."))
}

func clampReasonPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := clampReason(*s)
	return &v
}
