package domain

import (
	"time"

	"oxypaste/pkg/lang"
)

type Paste struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Language  lang.Language `json:"language"`
	Public    bool          `json:"public"`
	CreatedBy string        `json:"createdBy"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Draft is the working copy of a paste while it is being composed or
// edited. In-memory only; a successful save supersedes it.
type Draft struct {
	Title    string
	Content  string
	Language lang.Language
	Public   bool
}

type Summary struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Language  lang.Language `json:"language"`
	Public    bool          `json:"public"`
	CreatedBy string        `json:"createdBy"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Page struct {
	Items    []Summary `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Total    int       `json:"total"`
}

type SearchParams struct {
	Query     string
	Author    string
	From      time.Time
	To        time.Time
	TitleOnly bool
	Page      int
	PageSize  int
	Sort      string
}

type Stats struct {
	Pastes int `json:"pastes"`
	Users  int `json:"users"`
	Views  int `json:"views"`
}

// TokenGrant is what the backend hands out on login: an opaque bearer
// token and its expiry.
type TokenGrant struct {
	SessionToken string    `json:"sessionToken"`
	ExpireAt     time.Time `json:"expireAt"`
}

type SignUpParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
