package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// postDocument is the JSON object stored for every post.
type postDocument struct {
	Post string `json:"post"`
}

func encodePostDocument(text string) ([]byte, error) {
	data, err := json.Marshal(postDocument{Post: text})
	if err != nil {
		return nil, fmt.Errorf("encoding post document: %w", err)
	}
	return data, nil
}

func decodePostDocument(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", errors.New("post document is not valid JSON")
	}
	body := gjson.GetBytes(data, "post")
	if !body.Exists() {
		return "", errors.New(`post document has no "post" field`)
	}
	return body.String(), nil
}

// decodeProfileDocument reads token metadata. The avatar is taken from
// "avatar", falling back to the ERC-721 "image" key.
func decodeProfileDocument(data []byte) (Profile, error) {
	if !gjson.ValidBytes(data) {
		return Profile{}, errors.New("profile metadata is not valid JSON")
	}
	fields := gjson.GetManyBytes(data, "username", "avatar", "image")
	username, avatar, image := fields[0], fields[1], fields[2]
	if !avatar.Exists() {
		avatar = image
	}
	if !username.Exists() && !avatar.Exists() {
		return Profile{}, errors.New("profile metadata has neither username nor avatar")
	}
	return Profile{Username: username.String(), AvatarURI: avatar.String()}, nil
}
