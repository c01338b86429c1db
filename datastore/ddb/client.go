/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API is the subset of the DynamoDB client used by DataStore. *sdk.Client
// satisfies it; tests substitute their own implementation.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
	BatchGetItem(ctx context.Context, params *sdk.BatchGetItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
}

var _ API = (*sdk.Client)(nil)

// ClientConfig holds the connection settings for NewClient.
type ClientConfig struct {
	Region string
	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service endpoint, e.g. DynamoDB Local.
	Endpoint string
}

// NewClient initializes a DynamoDB client.
func NewClient(ctx context.Context, cc ClientConfig) (*sdk.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cc.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cc.Region))
	}
	if cc.AccessKeyID != "" && cc.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKeyID, cc.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		}
	}), nil
}
