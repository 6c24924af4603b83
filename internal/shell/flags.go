package shell

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/tinytelemetry/etlq/internal/logparse"
	"github.com/tinytelemetry/etlq/internal/query"
)

// errUsage marks a parse failure whose message and usage were already printed.
var errUsage = fmt.Errorf("usage error: %w", errReported)

// queryFlags holds the raw values of the query-style flags.
type queryFlags struct {
	head, tail, limit  int
	startDate, endDate string
	severity, code     string
	outfile            string
}

// newQueryFlagSet builds the flag set shared by query, stats and push.
// Only query accepts --outfile.
func newQueryFlagSet(name string, withOutfile bool) (*pflag.FlagSet, *queryFlags) {
	f := &queryFlags{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.IntVar(&f.head, "head", 0, "Return the first records according to the number specified.")
	fs.IntVar(&f.tail, "tail", 0, "Return the last records according to the number specified.")
	fs.StringVar(&f.startDate, "start-date", "", "Return logged events on or after the given date, in YYYY-MM-DD HH:MM:SS format (e.g. '2020-12-31 23:59:59').")
	fs.StringVar(&f.endDate, "end-date", "", "Return logged events on or before the given date, in YYYY-MM-DD HH:MM:SS format (e.g. '2020-12-31 23:59:59').")
	fs.StringVar(&f.severity, "severity", "", "Return logged events that contain the severity level specified {"+strings.Join(logparse.Severities, ",")+"}.")
	fs.StringVar(&f.code, "code", "", "Return logged events that contain the validation error code specified.")
	fs.IntVar(&f.limit, "limit", 0, "The maximum number of matches to return.")
	if withOutfile {
		fs.StringVar(&f.outfile, "outfile", "", "File in which to save query results. If omitted, results are printed to standard output.")
	}
	return fs, f
}

// request validates the parsed flags and converts them into a query request.
func (f *queryFlags) request() (query.Request, error) {
	req := query.Request{
		Head:    f.head,
		Tail:    f.tail,
		Code:    f.code,
		Limit:   f.limit,
		Outfile: f.outfile,
	}

	var err error
	if req.StartDate, err = parseDate("start-date", f.startDate); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDate("end-date", f.endDate); err != nil {
		return req, err
	}

	if f.severity != "" && !logparse.IsKnownSeverity(f.severity) {
		quoted := make([]string, len(logparse.Severities))
		for i, s := range logparse.Severities {
			quoted[i] = "'" + s + "'"
		}
		return req, fmt.Errorf("argument --severity: invalid choice: '%s' (choose from %s)", f.severity, strings.Join(quoted, ", "))
	}
	req.Severity = f.severity
	return req, nil
}

func parseDate(flag, text string) (t time.Time, err error) {
	if text == "" {
		return t, nil
	}
	t, err = logparse.ParseTime(text)
	if err != nil {
		return t, fmt.Errorf("argument --%s: '%s' is not a valid date. Use YYYY-MM-DD HH:MM:SS.", flag, text)
	}
	return t, nil
}

// parseFlags parses args into fs. Help requests print usage to out and
// return pflag.ErrHelp; other failures print usage plus the error to errOut
// and return errUsage.
func parseFlags(fs *pflag.FlagSet, inv invocation) error {
	err := fs.Parse(inv.args)
	if err == nil && fs.NArg() > 0 {
		err = fmt.Errorf("unrecognized arguments: %s", strings.Join(fs.Args(), " "))
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pflag.ErrHelp):
		printFlagUsage(inv.out, fs)
		return pflag.ErrHelp
	default:
		printUsageError(inv.errOut, fs.Name(), err)
		return errUsage
	}
}

func printUsageError(w io.Writer, name string, err error) {
	fmt.Fprintf(w, "usage: %s [flags]\n%s: error: %v\n", name, name, err)
}

func printFlagUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "usage: %s [flags]\n\noptions:\n%s", fs.Name(), fs.FlagUsages())
}
