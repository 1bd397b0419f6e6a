// Package config provides configuration parsing for spool projects.
//
// The configuration is stored in spool.json at the project root. Every
// section is optional:
//
//	{
//	  "render": {
//	    "ids": "counter",
//	    "idPrefix": "id-",
//	    "timeout": "10s"
//	  },
//	  "server": {
//	    "port": 3000,
//	    "tracing": true
//	  },
//	  "store": {
//	    "driver": "redis",
//	    "address": "localhost:6379",
//	    "ttl": "24h"
//	  },
//	  "publish": {
//	    "target": "s3",
//	    "bucket": "my-site",
//	    "prefix": "pages"
//	  },
//	  "watch": {
//	    "paths": ["partials"],
//	    "debounce": "200ms"
//	  }
//	}
//
// Command line flags override the loaded values.
package config
