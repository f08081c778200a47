package discount

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DecodeConfigs parses a JSON array of strategy descriptors. Monetary fields
// accept both JSON numbers and strings; validUntil is RFC 3339. Unknown keys
// are skipped so rules files can carry annotations.
func DecodeConfigs(data []byte) ([]Config, error) {
	d := jx.DecodeBytes(data)

	var configs []Config
	if err := d.Arr(func(d *jx.Decoder) error {
		cfg, err := decodeConfig(d)
		if err != nil {
			return err
		}
		configs = append(configs, cfg)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode strategy configs")
	}
	return configs, nil
}

func decodeConfig(d *jx.Decoder) (Config, error) {
	var cfg Config
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "type":
			cfg.Type, err = d.Str()
		case "brand":
			cfg.Brand, err = d.Str()
		case "category":
			cfg.Category, err = d.Str()
		case "code":
			cfg.Code, err = d.Str()
		case "bank":
			cfg.Bank, err = d.Str()
		case "percentage":
			cfg.Percentage, err = decodeDecimal(d)
		case "minCartAmount":
			cfg.MinCartAmount, err = decodeDecimal(d)
		case "maxDiscountCap":
			cfg.MaxDiscountCap, err = decodeDecimal(d)
		case "eligibleCategories":
			cfg.EligibleCategories, err = decodeStrings(d)
		case "eligibleBrands":
			cfg.EligibleBrands, err = decodeStrings(d)
		case "excludedBrands":
			cfg.ExcludedBrands, err = decodeStrings(d)
		case "excludedCategories":
			cfg.ExcludedCategories, err = decodeStrings(d)
		case "customerTiers":
			cfg.CustomerTiers, err = decodeStrings(d)
		case "premiumOnly":
			cfg.PremiumOnly, err = d.Bool()
		case "validUntil":
			var s string
			if s, err = d.Str(); err == nil {
				var t time.Time
				if t, err = time.Parse(time.RFC3339, s); err == nil {
					cfg.ValidUntil = &t
				}
			}
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return cfg, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}
