package chain

// contractABI is the consumed surface of the CosmicChicken contract. The
// getBotGameInfo tuple is pinned to the (gameId, player, startTime, entryFee,
// isActive) layout; older deployments with a trailing isFinished flag are not
// supported.
const contractABI = `[
  {
    "type": "function",
    "name": "entryFee",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "BOT_MAX_MULTIPLIER",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "BOT_GAME_MAX_DURATION",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "playerActiveBotGame",
    "stateMutability": "view",
    "inputs": [{ "name": "player", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "getBotGameInfo",
    "stateMutability": "view",
    "inputs": [{ "name": "gameId", "type": "uint256" }],
    "outputs": [
      { "name": "gameId", "type": "uint256" },
      { "name": "player", "type": "address" },
      { "name": "startTime", "type": "uint256" },
      { "name": "entryFee", "type": "uint256" },
      { "name": "isActive", "type": "bool" }
    ]
  },
  {
    "type": "function",
    "name": "getBotGameResult",
    "stateMutability": "view",
    "inputs": [{ "name": "gameId", "type": "uint256" }],
    "outputs": [
      { "name": "playerWon", "type": "bool" },
      { "name": "payout", "type": "uint256" },
      { "name": "finalMultiplier", "type": "uint256" }
    ]
  },
  {
    "type": "function",
    "name": "getCurrentRoundInfo",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      { "name": "prizePool", "type": "uint256" },
      { "name": "endTime", "type": "uint256" },
      { "name": "lastPlayer", "type": "address" },
      { "name": "playerCount", "type": "uint256" },
      { "name": "isFinished", "type": "bool" }
    ]
  },
  {
    "type": "function",
    "name": "isPlayerInCurrentRound",
    "stateMutability": "view",
    "inputs": [{ "name": "player", "type": "address" }],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "type": "function",
    "name": "owner",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "address" }]
  },
  {
    "type": "function",
    "name": "startBotGame",
    "stateMutability": "payable",
    "inputs": [],
    "outputs": []
  },
  {
    "type": "function",
    "name": "ejectFromBotGame",
    "stateMutability": "nonpayable",
    "inputs": [],
    "outputs": []
  },
  {
    "type": "function",
    "name": "resetBotGame",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "player", "type": "address" }],
    "outputs": []
  },
  {
    "type": "function",
    "name": "joinRound",
    "stateMutability": "payable",
    "inputs": [],
    "outputs": []
  },
  {
    "type": "function",
    "name": "ejectFromRound",
    "stateMutability": "nonpayable",
    "inputs": [],
    "outputs": []
  },
  {
    "type": "function",
    "name": "withdrawWinnings",
    "stateMutability": "nonpayable",
    "inputs": [],
    "outputs": []
  },
  {
    "type": "event",
    "name": "BotGameStarted",
    "inputs": [
      { "name": "player", "type": "address", "indexed": true },
      { "name": "gameId", "type": "uint256", "indexed": false }
    ]
  },
  {
    "type": "event",
    "name": "BotGameEnded",
    "inputs": [
      { "name": "player", "type": "address", "indexed": true },
      { "name": "gameId", "type": "uint256", "indexed": false },
      { "name": "playerWon", "type": "bool", "indexed": false },
      { "name": "payout", "type": "uint256", "indexed": false },
      { "name": "finalMultiplier", "type": "uint256", "indexed": false }
    ]
  },
  {
    "type": "event",
    "name": "PlayerEjected",
    "inputs": [
      { "name": "player", "type": "address", "indexed": true }
    ]
  },
  {
    "type": "event",
    "name": "RoundFinished",
    "inputs": [
      { "name": "winner", "type": "address", "indexed": true },
      { "name": "prizeAmount", "type": "uint256", "indexed": false }
    ]
  }
]`
