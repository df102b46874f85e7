package registry

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"RoboInvestor/internal/model"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// fakeDynamo emulates the if_not_exists update used by Put and serves one item per scan page.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	items map[string]map[string]*dynamodb.AttributeValue
}

func (f *fakeDynamo) UpdateItemWithContext(_ aws.Context, in *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	if aws.StringValue(in.TableName) != "stocks" {
		return nil, errors.New("ResourceNotFoundException")
	}
	ticker := aws.StringValue(in.Key["ticker"].S)
	item, ok := f.items[ticker]
	if !ok {
		item = map[string]*dynamodb.AttributeValue{"ticker": {S: aws.String(ticker)}}
		f.items[ticker] = item
	}
	item["threshold"] = in.ExpressionAttributeValues[":t"]
	if _, ok := item["seq"]; !ok {
		item["seq"] = in.ExpressionAttributeValues[":s"]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) ScanPagesWithContext(_ aws.Context, in *dynamodb.ScanInput, fn func(*dynamodb.ScanOutput, bool) bool, _ ...request.Option) error {
	if aws.StringValue(in.TableName) != "stocks" {
		return errors.New("ResourceNotFoundException")
	}
	n := 0
	for _, item := range f.items {
		n++
		if !fn(&dynamodb.ScanOutput{Items: []map[string]*dynamodb.AttributeValue{item}}, n == len(f.items)) {
			break
		}
	}
	return nil
}

func TestDynamoRegistry_PutAndList(t *testing.T) {
	fake := &fakeDynamo{items: map[string]map[string]*dynamodb.AttributeValue{
		// written without seq, as by older tooling
		"OLD": {"ticker": {S: aws.String("OLD")}, "threshold": {N: aws.String("1")}},
	}}
	r := NewDynamoRegistry(fake, "stocks")
	clock := time.Unix(1700000000, 0)
	r.now = func() time.Time { clock = clock.Add(time.Second); return clock }
	ctx := context.Background()

	if err := r.Put(ctx, model.Instrument{Ticker: "VTI", Threshold: 200}, model.Instrument{Ticker: "AAPL", Threshold: 180}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := r.Put(ctx, model.Instrument{Ticker: "VTI", Threshold: 210.5}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []model.Instrument{
		{Ticker: "OLD", Threshold: 1},
		{Ticker: "VTI", Threshold: 210.5},
		{Ticker: "AAPL", Threshold: 180},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDynamoRegistry_Errors(t *testing.T) {
	r := NewDynamoRegistry(&fakeDynamo{items: map[string]map[string]*dynamodb.AttributeValue{}}, "missing")
	if _, err := r.List(context.Background()); err == nil {
		t.Error("expected scan error")
	}
	if err := r.Put(context.Background(), model.Instrument{Ticker: "X"}); err == nil {
		t.Error("expected put error")
	}
	if err := r.Put(context.Background(), model.Instrument{}); err == nil {
		t.Error("expected empty ticker error")
	}
}
