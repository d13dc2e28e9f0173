package shared

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/relloyd/healthpipe/constants"
	"github.com/xo/dburl"
)

const redacted = "xxxxx"

// ConnectionDetails is intended to hold credentials for a logical connection.
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"connection type" mandatory:"yes" yaml:"type" mapstructure:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"connection logical name" mandatory:"yes" yaml:"logicalName" mapstructure:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data" mapstructure:"data"`
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	x := make([]string, 0, len(c.Data)+1)
	x = append(x, fmt.Sprintf("  type = %v", c.Type))
	if v, ok := c.Data[DefaultDsnConnectionKeyNames.Dsn]; ok { // if there's a DSN...
		x = append(x, fmt.Sprintf("  dsn = %v", RedactDsn(c.Type, v)))
	} else { // else there's no DSN... (could be S3 connection)
		keys := make([]string, 0, len(c.Data))
		for k := range c.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := c.Data[k]
			if k == "password" {
				v = redacted
			}
			x = append(x, fmt.Sprintf("  %v = %v", k, v))
		}
	}
	return strings.Join(x, "\n")
}

// RedactDsn returns dsn with any password removed.
// Snowflake DSNs are not valid URLs for every driver option so they are handled without dburl.
func RedactDsn(connectionType string, dsn string) string {
	if connectionType == constants.ConnectionTypeSnowflake {
		s := strings.TrimPrefix(dsn, "snowflake://")
		at := strings.LastIndex(s, "@")
		if at < 0 {
			return dsn
		}
		user := s[:at]
		if colon := strings.Index(user, ":"); colon >= 0 {
			user = user[:colon] + ":" + redacted
		}
		return "snowflake://" + user + s[at:]
	}
	u, err := dburl.Parse(dsn)
	if err != nil {
		// Don't echo something we can't parse since it may contain a password.
		return "<unparsable DSN>"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redacted)
		}
	}
	return u.URL.String()
}
