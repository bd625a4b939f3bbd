package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gallery-live/internal/domain"
)

// ArtworkRepo reads artwork ownership records.
type ArtworkRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewArtworkRepo(client *dynamodb.Client, tableName string) *ArtworkRepo {
	return &ArtworkRepo{client: client, tableName: tableName}
}

func (r *ArtworkRepo) Put(ctx context.Context, a *domain.Artwork) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal artwork: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ArtworkOwner returns the owner_id of an artwork.
func (r *ArtworkRepo) ArtworkOwner(ctx context.Context, artworkID string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(attrArtworkID, artworkID),
		ProjectionExpression:     aws.String("#o"),
		ExpressionAttributeNames: map[string]string{"#o": attrOwnerID},
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return "", fmt.Errorf("artwork %s: %w", artworkID, domain.ErrNotFound)
	}
	var a domain.Artwork
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return "", err
	}
	return a.OwnerID, nil
}

// Directory answers audience questions from the users and artworks tables.
type Directory struct {
	Users    *UserRepo
	Artworks *ArtworkRepo
}

func NewDirectory(client *dynamodb.Client, usersTable, artworksTable string) *Directory {
	return &Directory{
		Users:    NewUserRepo(client, usersTable),
		Artworks: NewArtworkRepo(client, artworksTable),
	}
}

func (d *Directory) UserIDsByRole(ctx context.Context, role string) ([]string, error) {
	return d.Users.UserIDsByRole(ctx, role)
}

func (d *Directory) ArtworkOwner(ctx context.Context, artworkID string) (string, error) {
	return d.Artworks.ArtworkOwner(ctx, artworkID)
}

func (d *Directory) RecordArtwork(ctx context.Context, a domain.Artwork) error {
	return d.Artworks.Put(ctx, &a)
}
