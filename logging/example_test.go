package logging_test

import (
	"github.com/premid/pmd/logging"
	"github.com/sirupsen/logrus"
)

func ExampleNewLogger() {
	log := logging.NewLogger("watcher")

	log.Debug("Watching presence directory")
	log.WithFields(logrus.Fields{
		"path": "presence.ts",
		"kind": "changed",
	}).Info("File event")
	log.WithField("presence", "YouTube").Warn("Metadata has no service field")
}

func ExampleNewLogger_configuration() {
	// Configuration via pmd.yml:
	//
	// logging:
	//   level: debug
	//   report_caller: true
	//   file:
	//     enabled: true
	//   format:
	//     preset: json
	//
	// Or via environment variables:
	// PMD_LOG_LEVEL=debug
	// PMD_LOG_CALLER=true

	log := logging.NewLogger("compiler")
	log.Info("This will respect the configuration")
}
