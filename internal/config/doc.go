// A YAML configuration file looks like:
//
//	mode: relayed
//	chunk_size: 8MB
//	server:
//	  addr: ":4000"
//	  url: http://localhost:4000
//	s3:
//	  endpoint: http://localhost:9000
//	  region: us-east-1
//	  bucket: uploads
//	  prefix: transfers
//	  force_path_style: true
//	sign:
//	  expires: 15m
//	log:
//	  level: debug
//	  pretty: true
package config
