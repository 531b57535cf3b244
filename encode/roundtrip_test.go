package encode

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/xmlcast/decode"
	"github.com/BaSui01/xmlcast/descriptor"
)

type sampleDoc struct {
	Flag  bool
	Count int32
	Ratio float64
	Label string
	Tags  []string
	Dials map[string]int64
}

// Marshal output must decode back to an equal value for arbitrary
// field contents, including strings that embed markup or the escape
// block close marker.
func TestMarshalDecodeRoundTripProperty(t *testing.T) {
	desc, err := descriptor.Of(reflect.TypeOf(sampleDoc{}))
	require.NoError(t, err)
	dec := decode.NewDecoder()

	rapid.Check(t, func(t *rapid.T) {
		in := sampleDoc{
			Flag:  rapid.Bool().Draw(t, "flag"),
			Count: rapid.Int32().Draw(t, "count"),
			// Finite range: NaN never compares equal to itself.
			Ratio: rapid.Float64Range(-1e9, 1e9).Draw(t, "ratio"),
			Label: rapid.String().Draw(t, "label"),
			// Minimum length 1 keeps nil collections out of the
			// comparison; an empty document member always decodes to
			// an allocated empty collection.
			Tags:  rapid.SliceOfN(rapid.String(), 1, 4).Draw(t, "tags"),
			Dials: rapid.MapOfN(rapid.String(), rapid.Int64(), 1, 4).Draw(t, "dials"),
		}

		doc, err := MarshalDescriptor(desc, reflect.ValueOf(in))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		var out sampleDoc
		if err := dec.Unmarshal(desc, doc, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Fatalf("round trip mismatch:\n in: %#v\nout: %#v", in, out)
		}
	})
}

func TestMarshalDecodeRoundTripHostileStrings(t *testing.T) {
	desc, err := descriptor.Of(reflect.TypeOf(sampleDoc{}))
	require.NoError(t, err)
	dec := decode.NewDecoder()

	hostile := []string{
		"]]>", "<![CDATA[", "</Label>", "<item>", "\n\t ", "日本語",
		"a]]>b]]>c", "<!-- not a comment -->",
	}
	for _, s := range hostile {
		in := sampleDoc{
			Label: s,
			Tags:  []string{s},
			Dials: map[string]int64{s: 1},
		}
		doc, err := MarshalDescriptor(desc, reflect.ValueOf(in))
		require.NoError(t, err, "input %q", s)

		var out sampleDoc
		require.NoError(t, dec.Unmarshal(desc, doc, &out), "input %q", s)
		require.Equal(t, in, out, "input %q", s)
	}
}
