package registry

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"RoboInvestor/internal/model"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

type stockItem struct {
	Ticker    string  `dynamodbav:"ticker"`
	Threshold float64 `dynamodbav:"threshold"`
	Seq       int64   `dynamodbav:"seq"`
}

// DynamoRegistry keeps instruments in a DynamoDB table keyed by "ticker".
// A "seq" attribute set on first insert gives List its order; items without
// one sort first, by ticker.
type DynamoRegistry struct {
	client dynamodbiface.DynamoDBAPI
	table  string
	now    func() time.Time
}

func NewDynamoRegistry(client dynamodbiface.DynamoDBAPI, table string) *DynamoRegistry {
	return &DynamoRegistry{client: client, table: table, now: time.Now}
}

func (r *DynamoRegistry) List(ctx context.Context) ([]model.Instrument, error) {
	var items []stockItem
	var decodeErr error
	err := r.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{TableName: aws.String(r.table)},
		func(page *dynamodb.ScanOutput, _ bool) bool {
			var batch []stockItem
			if decodeErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &batch); decodeErr != nil {
				return false
			}
			items = append(items, batch...)
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.table, err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s: %w", r.table, decodeErr)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Seq != items[j].Seq {
			return items[i].Seq < items[j].Seq
		}
		return items[i].Ticker < items[j].Ticker
	})
	out := make([]model.Instrument, len(items))
	for i, it := range items {
		out[i] = model.Instrument{Ticker: it.Ticker, Threshold: it.Threshold}
	}
	return out, nil
}

// Put upserts each instrument. The threshold is overwritten; seq is kept.
func (r *DynamoRegistry) Put(ctx context.Context, instruments ...model.Instrument) error {
	base := r.now().UnixNano()
	for i, in := range instruments {
		if in.Ticker == "" {
			return fmt.Errorf("empty ticker")
		}
		_, err := r.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.table),
			Key: map[string]*dynamodb.AttributeValue{
				"ticker": {S: aws.String(in.Ticker)},
			},
			UpdateExpression: aws.String("SET threshold = :t, seq = if_not_exists(seq, :s)"),
			ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
				":t": {N: aws.String(strconv.FormatFloat(in.Threshold, 'f', -1, 64))},
				":s": {N: aws.String(strconv.FormatInt(base+int64(i), 10))},
			},
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", in.Ticker, err)
		}
	}
	return nil
}
