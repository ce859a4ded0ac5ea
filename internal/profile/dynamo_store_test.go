package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	item        map[string]types.AttributeValue
	err         error
	getInput    *dynamodb.GetItemInput
	updateInput *dynamodb.UpdateItemInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestDynamoStore_Get(t *testing.T) {
	fake := &fakeDynamo{item: map[string]types.AttributeValue{
		"user_id":     &types.AttributeValueMemberS{Value: "user-1"},
		"cartData":    &types.AttributeValueMemberS{Value: "[]"},
		"lastUpdated": &types.AttributeValueMemberS{Value: "2025-01-01T00:00:00.000Z"},
		"visits":      &types.AttributeValueMemberN{Value: "3"},
	}}
	store := NewDynamoStore(fake, "profiles")

	fields, err := store.Get(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, Metadata{"cartData": "[]", "lastUpdated": "2025-01-01T00:00:00.000Z"}, fields)
	assert.Equal(t, "profiles", aws.ToString(fake.getInput.TableName))
	assert.True(t, aws.ToBool(fake.getInput.ConsistentRead))
}

func TestDynamoStore_Get_NoItem(t *testing.T) {
	store := NewDynamoStore(&fakeDynamo{}, "profiles")

	fields, err := store.Get(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestDynamoStore_Update_SingleExpression(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewDynamoStore(fake, "profiles")

	err := store.Update(context.Background(), "user-1", Metadata{"lastUpdated": "t", "cartData": "[]"})
	require.NoError(t, err)

	in := fake.updateInput
	require.NotNil(t, in)
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1", aws.ToString(in.UpdateExpression))
	assert.Equal(t, map[string]string{"#f0": "cartData", "#f1": "lastUpdated"}, in.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "[]"}, in.ExpressionAttributeValues[":v0"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "user-1"}, in.Key["user_id"])
}

func TestDynamoStore_Errors(t *testing.T) {
	fake := &fakeDynamo{err: errors.New("throttled")}
	store := NewDynamoStore(fake, "profiles")

	_, err := store.Get(context.Background(), "user-1")
	assert.ErrorContains(t, err, "failed to get profile")

	err = store.Update(context.Background(), "user-1", Metadata{"a": "b"})
	assert.ErrorContains(t, err, "failed to update profile")
}
