// Package config loads the host configuration for the bonsai binary.
//
// Values are resolved in three layers: Default, then the YAML file, then
// a fixed set of BONSAI_* environment variables. Validate runs last and
// reports every invalid field in one error instead of stopping at the
// first.
//
// Secrets (BONSAI_MQTT_PASSWORD, BONSAI_INFLUXDB_TOKEN) are best kept out
// of the YAML file and supplied through the environment.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//	logger.SetFilter(cfg.Filter.Filter())
package config
