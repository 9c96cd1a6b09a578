package main

import (
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
	"github.com/MixinNetwork/wabisabi-go/logger"
	"github.com/MixinNetwork/wabisabi-go/round"
)

var (
	simulateAmount string
	simulateSplit  string
	simulateK      int
	simulateWidth  int
)

func simulateCmd() *cobra.Command {
	simulateRunCmd.ResetFlags()
	flags := simulateRunCmd.Flags()
	flags.StringVarP(&simulateAmount, "amount", "a", "0.001", "BTC amount registered as input.")
	flags.StringVarP(&simulateSplit, "split", "s", "0.0006,0.0004", "Comma separated BTC amounts the input is split into.")
	flags.IntVarP(&simulateK, "credentials", "k", 2, "Number of credentials per request.")
	flags.IntVarP(&simulateWidth, "width", "w", 51, "Range proof bit width.")
	return simulateRunCmd
}

var simulateRunCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run bootstrap, input registration, split and a double spend against an in-process coordinator.",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(simulateAmount)
		if err != nil {
			return err
		}
		var split []btcutil.Amount
		for _, s := range strings.Split(simulateSplit, ",") {
			a, err := parseAmount(s)
			if err != nil {
				return err
			}
			split = append(split, a)
		}

		log, err := logger.New("", "info", false)
		if err != nil {
			return err
		}
		defer log.Sync()
		return simulate(log, amount, split)
	},
}

// parseAmount reads a decimal BTC amount exactly, rejecting sub-satoshi precision.
func parseAmount(s string) (btcutil.Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid amount %q", s)
	}
	sat := d.Shift(8)
	if !sat.Equal(sat.Truncate(0)) {
		return 0, errors.Errorf("amount %q below one satoshi precision", s)
	}
	if sat.IsNegative() {
		return 0, errors.Errorf("negative amount %q", s)
	}
	return btcutil.Amount(sat.IntPart()), nil
}

func simulate(log *zap.Logger, amount btcutil.Amount, split []btcutil.Amount) error {
	signer, err := round.GenerateSigner()
	if err != nil {
		return err
	}
	coordinator, err := round.NewCoordinator(signer, simulateK, simulateWidth, log.Named("coordinator"), nil)
	if err != nil {
		return err
	}
	r := coordinator.Current()
	key := signer.PublicKey()
	client, err := r.Announcement().NewClient(&key, wabisabi.WithClientLogger(log.Named("client")))
	if err != nil {
		return err
	}

	register := func(req *wabisabi.RegistrationRequestMessage, vc *wabisabi.ValidationContext) ([]*wabisabi.Credential, error) {
		resp, err := coordinator.HandleRequest(r.ID(), req)
		if err != nil {
			return nil, err
		}
		return client.HandleResponse(resp, vc)
	}

	req, vc, err := client.CreateRequestForZeroAmount()
	if err != nil {
		return err
	}
	if _, err := register(req, vc); err != nil {
		return err
	}
	log.Info("bootstrapped", zap.Int("zero_credentials", len(client.Credentials.ZeroValueCredentials())))

	req, vc, err = client.CreateRequest([]btcutil.Amount{amount}, nil)
	if err != nil {
		return err
	}
	input, err := register(req, vc)
	if err != nil {
		return err
	}
	log.Info("input registered", zap.Stringer("amount", amount), zap.Int64("round_balance", r.Issuer().Balance()))

	req, vc, err = client.CreateRequest(split, input)
	if err != nil {
		return err
	}
	outputs, err := register(req, vc)
	if err != nil {
		return err
	}
	for _, c := range outputs {
		log.Info("credential", zap.Stringer("amount", btcutil.Amount(c.Value)))
	}

	req, _, err = client.CreateRequest(nil, input)
	if err != nil {
		return err
	}
	_, err = coordinator.HandleRequest(r.ID(), req)
	if code, ok := wabisabi.ErrorCodeOf(err); !ok || code != wabisabi.SerialNumberAlreadyUsed {
		return errors.Errorf("double spend not detected: %v", err)
	}
	log.Info("double spend rejected", zap.Error(err))
	return nil
}
