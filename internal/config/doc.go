// Package config loads uiregistry configuration.
//
// Settings are layered with koanf. From lowest to highest precedence:
// built-in defaults, uiregistry.yaml, UIREGISTRY_ environment variables
// (sections separated by a double underscore) and command-line flags that
// were set explicitly.
//
// # Configuration File Structure
//
//	server:
//	  host: localhost
//	  port: 8080
//	  rate_limit: 50
//	registry:
//	  dir: .
//	  prefix: registry
//	  watch: true
//	  s3:
//	    bucket: ui-registry
//	    prefix: v1/
//	  refresh: "@every 5m"
//	table:
//	  default_page_size: 10
//	  max_page_size: 100
//	database:
//	  driver: sqlite
//	  dsn: file:contacts.db
//	log:
//	  level: info
//	  format: json
//	  file: /var/log/uiregistry.log
//
// # Usage
//
//	cfg, err := config.Load("", cmd.Flags())
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println("Listening on", cfg.Address())
//
// UIREGISTRY_DATABASE__DSN=postgres://... overrides database.dsn.
package config
