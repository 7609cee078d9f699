package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// SaveModel はモデルの状態をgob形式でファイルに保存する
//
// stateはエクスポートされたフィールドのみを持つ構造体であること。
// 推定器は内部状態をそのようなスナップショットに変換してから渡す。
func SaveModel(state interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return SaveModelToWriter(state, file)
}

// LoadModel はファイルからモデルの状態を読み込む
func LoadModel(state interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return LoadModelFromReader(state, file)
}

// SaveModelToWriter はモデルの状態をio.Writerに保存する
func SaveModelToWriter(state interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(state); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルの状態を読み込む
func LoadModelFromReader(state interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(state); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	return nil
}
