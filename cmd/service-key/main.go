// Hashes the shared key that other services send on /api/v1/internal calls.
// The output goes into INTERNAL_KEY_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/DavidGamba/go-getoptions"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"taskboard-api/config"
)

type commandLineOptionValues struct {
	Key    string
	Verify bool
	Cost   int
}

func parseCommandLine() *commandLineOptionValues {
	optionValues := &commandLineOptionValues{}
	opt := getoptions.New()

	opt.Bool("help", false, opt.Alias("h", "?"))
	opt.StringVar(&optionValues.Key, "key", "",
		opt.Alias("k"),
		opt.Description("the plain service key; read from stdin when omitted"))
	opt.BoolVar(&optionValues.Verify, "verify", false,
		opt.Description("check the key against the configured INTERNAL_KEY_HASH instead of hashing it"))
	opt.IntVar(&optionValues.Cost, "cost", bcrypt.DefaultCost,
		opt.Description("bcrypt cost"))

	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		fmt.Fprint(os.Stderr, opt.Help(getoptions.HelpSynopsis))
		os.Exit(2)
	}

	return optionValues
}

func readKey(optionValues *commandLineOptionValues) string {
	if key := strings.TrimSpace(optionValues.Key); key != "" {
		return key
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		logrus.Fatalf("No key given: %v", err)
	}
	return strings.TrimSpace(line)
}

func main() {
	optionValues := parseCommandLine()
	key := readKey(optionValues)
	if key == "" {
		logrus.Fatal("Service key must not be empty")
	}

	if optionValues.Verify {
		settings := config.Load()
		if settings.InternalKeyHash == "" {
			logrus.Fatal("INTERNAL_KEY_HASH is not set")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(settings.InternalKeyHash), []byte(key)); err != nil {
			logrus.Fatal("Key does not match INTERNAL_KEY_HASH")
		}
		logrus.Info("Key matches INTERNAL_KEY_HASH")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), optionValues.Cost)
	if err != nil {
		logrus.Fatalf("Failed to hash key: %v", err)
	}
	fmt.Println(string(hashed))
}
