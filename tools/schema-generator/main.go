// Command schema-generator writes the JSON schema of pmd.yml so editors can
// validate and complete configuration files.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/premid/pmd/config"
	"github.com/spf13/pflag"
)

func main() {
	out := pflag.StringP("output", "o", filepath.Join("schema", "definitions", "pmd.schema.json"), "Schema file to write")
	pflag.Parse()

	data, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("generate schema: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("create %s: %v", filepath.Dir(*out), err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Printf("Wrote pmd.yml schema to %s", *out)
}
