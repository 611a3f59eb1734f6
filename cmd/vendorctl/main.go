// Command vendorctl runs operator tasks against the platform database:
// schema migration, bulk imports from local files and super admin bootstrap.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	if err := newRootCmd(config.ConnectDatabase).Execute(); err != nil {
		os.Exit(1)
	}
}
