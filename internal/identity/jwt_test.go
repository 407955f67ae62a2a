package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	actor := ManagerActor(uuid.New())

	token, err := svc.Generate(actor, "admin@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.ActorID != actor.ID || claims.ActorType != ActorManager {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Email != "admin@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(UserActor(uuid.New()), "x@y.z")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestValidateRejectsUnknownActorType(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	claims := Claims{ActorID: uuid.New(), ActorType: "robot"}
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := raw.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Fatal("unknown actor type must be rejected")
	}
}
