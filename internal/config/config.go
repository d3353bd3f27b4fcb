package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DefaultCurrency  string            `mapstructure:"default_currency"`
	PaymentDelayDays int               `mapstructure:"payment_delay_days"`
	Tax              TaxConfig         `mapstructure:"tax"`
	Company          map[string]string `mapstructure:"company"`
	PaymentMethods   map[string]string `mapstructure:"payment_methods"`
	Output           OutputConfig      `mapstructure:"output"`
	Render           RenderConfig      `mapstructure:"render"`
	Database         DatabaseConfig    `mapstructure:"database"`
	Logger           LoggerConfig      `mapstructure:"logger"`
}

// TaxConfig holds the tax jurisdiction table. Country codes listed in
// Jurisdictions are taxed at ServiceRate (tax-inclusive); any other code
// gets rate 0.
type TaxConfig struct {
	ServiceRate   float64  `mapstructure:"service_rate"`
	Jurisdictions []string `mapstructure:"jurisdictions"`
	// ExemptionNotice is the legal mention placed on invoices whose tax
	// rate is zero (reverse-charge wording and the like).
	ExemptionNotice string `mapstructure:"exemption_notice"`
}

// OutputConfig holds template and output tree locations
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	TemplatePath string `mapstructure:"template_path"`
	AssetsDir    string `mapstructure:"assets_dir"`
}

// RenderConfig holds external document-converter configuration
type RenderConfig struct {
	PDFBinary   string `mapstructure:"pdf_binary"`
	ImageBinary string `mapstructure:"image_binary"`
	Workers     int    `mapstructure:"workers"`
}

// DatabaseConfig holds the run-ledger database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("default_currency", "EUR")
	v.SetDefault("payment_delay_days", 7)

	// Standard service tax applies to EU country codes by default
	v.SetDefault("tax.service_rate", 0.20)
	v.SetDefault("tax.jurisdictions", []string{
		"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "EL", "ES",
		"FI", "FR", "HR", "HU", "IE", "IT", "LT", "LU", "LV", "MT",
		"NL", "PL", "PT", "RO", "SE", "SI", "SK", "UK",
	})

	v.SetDefault("output.dir", "out")
	v.SetDefault("output.template_path", "template/invoice.html")
	v.SetDefault("output.assets_dir", "template")

	v.SetDefault("render.pdf_binary", "wkhtmltopdf")
	v.SetDefault("render.image_binary", "wkhtmltoimage")
	v.SetDefault("render.workers", 2)

	v.SetDefault("database.path", "data/invoices.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.format", "console")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("company.name", "COMPANY_NAME")
	v.BindEnv("company.vat", "COMPANY_VAT_NUMBER")
	v.BindEnv("database.path", "INVOICES_DB_PATH")
	v.BindEnv("output.dir", "INVOICES_OUTPUT_DIR")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultCurrency == "" {
		return fmt.Errorf("default_currency is required")
	}
	if c.PaymentDelayDays < 0 {
		return fmt.Errorf("payment_delay_days must not be negative")
	}
	if c.Tax.ServiceRate < 0 || c.Tax.ServiceRate >= 1 {
		return fmt.Errorf("tax.service_rate must be a fraction in [0,1)")
	}
	if len(c.Company) == 0 {
		return fmt.Errorf("company details are required")
	}
	if c.Output.TemplatePath == "" {
		return fmt.Errorf("output.template_path is required")
	}
	if c.Render.Workers < 1 {
		return fmt.Errorf("render.workers must be at least 1")
	}
	return nil
}

// TaxRateFor returns the tax rate for a client country code: the standard
// service rate for codes in the jurisdiction table, zero otherwise. An
// unknown country is not an error.
func (c *Config) TaxRateFor(countryCode string) decimal.Decimal {
	for _, code := range c.Tax.Jurisdictions {
		if code == countryCode {
			return decimal.NewFromFloat(c.Tax.ServiceRate)
		}
	}
	return decimal.Zero
}

// PaymentDetails resolves a payment-method name from the source table to its
// free-text details. An unconfigured method resolves to an empty string.
func (c *Config) PaymentDetails(method string) string {
	return c.PaymentMethods[method]
}
