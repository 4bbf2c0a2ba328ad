// Package config loads the service configuration.
//
// Values come from the environment, optionally seeded from a .env file. Keys
// are derived from the mapstructure tags of each section, so reconcile.cool_down
// is set with RECONCILE_COOL_DOWN. Defaults live next to the fields in
// `default` struct tags.
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Reconcile.CoolDown)
package config
