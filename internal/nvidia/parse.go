package nvidia

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gputweak/gputweak/internal/errors"
)

// AttributeNotFoundError reports a key missing from a compound value, which
// usually means the driver renamed or dropped it.
type AttributeNotFoundError struct {
	Key   string
	Value string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in %q", e.Key, e.Value)
}

// Unwrap exposes the ATTRIBUTE code to errors.IsCode.
func (e *AttributeNotFoundError) Unwrap() error {
	return errors.New(errors.ErrAttribute,
		fmt.Sprintf("The driver didn't report %q", e.Key),
		"Your driver version may not expose this reading. Check: gputweak query <gpu> <Attribute> --all")
}

var compoundPair = regexp.MustCompile(`([A-Za-z0-9]+)=(-?[0-9]+)`)

// ParseCompound looks up key in a compound value such as
// "nvclock=1506, memclock=3802". The key matches literally and
// case-sensitively, and must start the text or follow a non-alphanumeric
// character, so "clock" does not match inside "nvclock=".
func ParseCompound(value, key string) (int, error) {
	re, err := regexp.Compile(`(?:^|[^A-Za-z0-9])` + regexp.QuoteMeta(key) + `=(-?[0-9]+)`)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrParse, "Invalid compound key "+key, "")
	}
	m := re.FindStringSubmatch(value)
	if m == nil {
		return 0, &AttributeNotFoundError{Key: key, Value: value}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrParse,
			fmt.Sprintf("Value of %q is out of range: %s", key, m[1]), "")
	}
	return n, nil
}

// ParseCompoundAll returns every key=integer pair in value. Later
// duplicates overwrite earlier ones.
func ParseCompoundAll(value string) map[string]int {
	out := make(map[string]int)
	for _, m := range compoundPair.FindAllStringSubmatch(value, -1) {
		if n, err := strconv.Atoi(m[2]); err == nil {
			out[m[1]] = n
		}
	}
	return out
}

// ParseInt parses the trimmed text of an integer attribute.
func ParseInt(text string) (int, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrParse,
			fmt.Sprintf("Expected an integer, got %q", text), "")
	}
	return n, nil
}

var gpuLine = regexp.MustCompile(`\[gpu:(\d+)\] +\(([A-Za-z0-9 ]+)\)`)

// Discovered is one GPU listed by "nvidia-settings -q gpus".
type Discovered struct {
	ID   int
	Name string
}

// ParseGPUList extracts every "[gpu:<id>] (<name>)" occurrence from the
// output of "-q gpus". Anything else is ignored.
func ParseGPUList(out string) []Discovered {
	matches := gpuLine.FindAllStringSubmatch(out, -1)
	list := make([]Discovered, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		list = append(list, Discovered{ID: id, Name: m[2]})
	}
	return list
}
