package shared

// Gateway identifies an external payment gateway.
type Gateway string

const (
	GatewayMercadoPago Gateway = "mercadopago"
	GatewayStripe      Gateway = "stripe"
)

var validGateways = map[Gateway]bool{
	GatewayMercadoPago: true,
	GatewayStripe:      true,
}

func (g Gateway) IsValid() bool {
	return validGateways[g]
}

func (g Gateway) String() string {
	return string(g)
}

// Environment selects the gateway's sandbox or live credentials.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

func (e Environment) String() string {
	return string(e)
}
