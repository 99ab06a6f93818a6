package connector

import "errors"

var (
	ErrConnectorNotFound   = errors.New("connector not found")
	ErrConnectorInactive   = errors.New("connector is inactive")
	ErrLastActiveConnector = errors.New("connector is the only active one for a gateway with active subscriptions")
)
