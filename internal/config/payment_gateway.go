package config

type PaymentConfig struct {
	CallbackBaseURL string            `yaml:"callback_base_url"`
	Bkash           *BkashConfig      `yaml:"bkash"`
	Nagad           *NagadConfig      `yaml:"nagad"`
	SSLCommerz      *SSLCommerzConfig `yaml:"sslcommerz"`
	Stripe          *StripeConfig     `yaml:"stripe"`
}

type BkashConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	AppKey    string `yaml:"app_key"`
	AppSecret string `yaml:"app_secret"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type NagadConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	MerchantID string `yaml:"merchant_id"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
}

type SSLCommerzConfig struct {
	Enabled       bool   `yaml:"enabled"`
	BaseURL       string `yaml:"base_url"`
	StoreID       string `yaml:"store_id"`
	StorePassword string `yaml:"store_password"`
}

type StripeConfig struct {
	Enabled   bool   `yaml:"enabled"`
	SecretKey string `yaml:"secret_key"`
}

func loadPaymentConfig() *PaymentConfig {
	return &PaymentConfig{
		CallbackBaseURL: getEnv("PAYMENT_CALLBACK_BASE_URL", "http://localhost:8080/api/v1/payments/callback"),
		Bkash: &BkashConfig{
			Enabled:   getEnvAsBool("BKASH_ENABLED", false),
			BaseURL:   getEnv("BKASH_BASE_URL", "https://tokenized.sandbox.bka.sh/v1.2.0-beta"),
			AppKey:    getEnv("BKASH_APP_KEY", ""),
			AppSecret: getEnv("BKASH_APP_SECRET", ""),
			Username:  getEnv("BKASH_USERNAME", ""),
			Password:  getEnv("BKASH_PASSWORD", ""),
		},
		Nagad: &NagadConfig{
			Enabled:    getEnvAsBool("NAGAD_ENABLED", false),
			BaseURL:    getEnv("NAGAD_BASE_URL", "https://sandbox.mynagad.com/remote-payment-gateway-1.0"),
			MerchantID: getEnv("NAGAD_MERCHANT_ID", ""),
			PublicKey:  getEnv("NAGAD_PUBLIC_KEY", ""),
			PrivateKey: getEnv("NAGAD_PRIVATE_KEY", ""),
		},
		SSLCommerz: &SSLCommerzConfig{
			Enabled:       getEnvAsBool("SSLCOMMERZ_ENABLED", false),
			BaseURL:       getEnv("SSLCOMMERZ_BASE_URL", "https://sandbox.sslcommerz.com"),
			StoreID:       getEnv("SSLCOMMERZ_STORE_ID", ""),
			StorePassword: getEnv("SSLCOMMERZ_STORE_PASSWORD", ""),
		},
		Stripe: &StripeConfig{
			Enabled:   getEnvAsBool("STRIPE_ENABLED", false),
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
	}
}
