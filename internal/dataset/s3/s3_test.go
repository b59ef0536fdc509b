package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeGetter struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeGetter) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestSourceLoad(t *testing.T) {
	g := &fakeGetter{body: "year,month,riskclient\n2024,1,1\n2024,2,0\n"}
	src := &Source{client: g, bucket: "risk-data", key: "exports/aggregated_df.csv"}

	tbl, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 2 || tbl.Records[0].RiskFlag != 1 {
		t.Fatalf("unexpected table: %+v", tbl.Records)
	}
	if g.bucket != "risk-data" || g.key != "exports/aggregated_df.csv" {
		t.Fatalf("unexpected request: %s/%s", g.bucket, g.key)
	}
	if src.Name() != "s3://risk-data/exports/aggregated_df.csv" {
		t.Fatalf("unexpected name %q", src.Name())
	}
}

func TestSourceLoadError(t *testing.T) {
	denied := errors.New("access denied")
	src := &Source{client: &fakeGetter{err: denied}, bucket: "b", key: "k"}
	if _, err := src.Load(context.Background()); !errors.Is(err, denied) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewValidatesLocation(t *testing.T) {
	if _, err := New(context.Background(), Options{Bucket: "b"}); err == nil {
		t.Fatalf("expected error without key")
	}
}
